package instance

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/model"
)

// Locator is a named attachment point of an instance. Dependents such as
// particle emitters keep the pointer and poll Valid: once the instance is
// replaced or unequipped the locator's position is stale.
type Locator struct {
	Name string
	Bone string

	mu    sync.RWMutex
	pos   mgl32.Vec3
	valid *atomic.Bool
}

// Valid reports whether the owning instance is still worn.
func (l *Locator) Valid() bool { return l.valid.Load() }

// Position returns the model-space position from the last update.
func (l *Locator) Position() mgl32.Vec3 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pos
}

func (l *Locator) set(p mgl32.Vec3) {
	l.mu.Lock()
	l.pos = p
	l.mu.Unlock()
}

// Locator returns the named locator. The same pointer is returned for the
// whole life of the instance, across model switches.
func (i *Instance) Locator(name string) (*Locator, bool) {
	l, ok := i.locators[name]
	return l, ok
}

// LocatorNames returns the locator names in sorted order.
func (i *Instance) LocatorNames() []string {
	names := make([]string, 0, len(i.locators))
	for name := range i.locators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// updateLocators moves every locator the current model declares to its
// position in the current pose. Locators the model no longer declares keep
// their last position.
func (i *Instance) updateLocators() {
	i.model.Walk(func(b, _ *model.Bone) {
		for name := range b.Locators {
			l, ok := i.locators[name]
			if !ok {
				continue
			}
			if p, ok := i.pose.Locator(b, name); ok {
				l.set(p)
			}
		}
	})
}
