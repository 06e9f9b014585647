package molang

// Context supplies the live values an expression reads. Names are canonical
// (see Canonical), e.g. "query.anim_time" or "variable.swing".
// Implementations must be read-only from the evaluator's point of view.
type Context interface {
	Lookup(name string) (float32, bool)
}

// Vars is a Context backed by a map. Keys must be canonical names.
type Vars map[string]float32

// Lookup implements Context.
func (v Vars) Lookup(name string) (float32, bool) {
	f, ok := v[name]
	return f, ok
}

// Layered searches each Context in order and returns the first hit.
// Nil entries are skipped.
type Layered []Context

// Lookup implements Context.
func (l Layered) Lookup(name string) (float32, bool) {
	for _, c := range l {
		if c == nil {
			continue
		}
		if v, ok := c.Lookup(name); ok {
			return v, true
		}
	}
	return 0, false
}
