// Package assets loads cosmetic assets from directory roots and caches the
// decoded models for sharing between wearers.
//
// A cosmetic lives in <root>/<id>/ and consists of geometry.json, an
// optional animations.json, a texture.{png,tga,webp} and an optional
// skin_mask.{png,tga,webp} whose fully transparent pixels mark the skin the
// cosmetic hides.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/internal/engine/skinmask"
	"github.com/Faultbox/midgard-wearables/internal/engine/texture"
	"github.com/Faultbox/midgard-wearables/internal/logger"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
)

// Asset file names inside a cosmetic directory.
const (
	GeometryFile   = "geometry.json"
	AnimationsFile = "animations.json"
	TextureStem    = "texture"
	SkinMaskStem   = "skin_mask"
)

// Library errors.
var (
	ErrNotFound  = errors.New("cosmetic not found")
	ErrInvalidID = errors.New("invalid cosmetic id")
	ErrNoTexture = errors.New("cosmetic has no texture")
)

// Cosmetic is a decoded cosmetic asset. The texture stays on the CPU;
// uploading it is up to the caller's render backend.
type Cosmetic struct {
	ID    string
	Dir   string
	Model *model.Model
	Image *image.NRGBA
}

// Result is the outcome of an asynchronous load.
type Result struct {
	Cosmetic *Cosmetic
	Err      error
}

type entry struct {
	done chan struct{}
	cos  *Cosmetic
	err  error
}

// Library resolves cosmetic ids against its roots, decodes them once and
// hands the same Cosmetic to every caller until it is swept.
type Library struct {
	roots []string

	mu      sync.Mutex
	entries map[string]*entry

	// Stats
	hits   int
	misses int

	log *zap.Logger
}

// NewLibrary creates a library over roots. Roots are searched in reverse
// order (last given = highest priority).
func NewLibrary(roots ...string) *Library {
	return &Library{
		roots:   append([]string(nil), roots...),
		entries: make(map[string]*entry),
		log:     logger.Named("assets"),
	}
}

// Resolve returns the directory holding cosmetic id.
func (l *Library) Resolve(id string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(id)))
	if id == "" || clean != id || strings.HasPrefix(clean, "../") || clean == ".." || filepath.IsAbs(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for i := len(l.roots) - 1; i >= 0; i-- {
		dir := filepath.Join(l.roots[i], filepath.FromSlash(id))
		if info, err := os.Stat(filepath.Join(dir, GeometryFile)); err == nil && !info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Load decodes cosmetic id in the background and delivers the result on the
// returned channel. Concurrent loads of one id share a single decode. If
// ctx ends first the result carries ctx's error; the decode itself still
// completes and is cached.
func (l *Library) Load(ctx context.Context, id string) <-chan Result {
	out := make(chan Result, 1)

	l.mu.Lock()
	e, ok := l.entries[id]
	if ok {
		l.hits++
	} else {
		l.misses++
		e = &entry{done: make(chan struct{})}
		l.entries[id] = e
		go l.decode(id, e)
	}
	l.mu.Unlock()

	go func() {
		select {
		case <-e.done:
			out <- Result{Cosmetic: e.cos, Err: e.err}
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		}
		close(out)
	}()
	return out
}

// Get is the blocking form of Load.
func (l *Library) Get(ctx context.Context, id string) (*Cosmetic, error) {
	r := <-l.Load(ctx, id)
	return r.Cosmetic, r.Err
}

func (l *Library) decode(id string, e *entry) {
	e.cos, e.err = l.read(id)
	if e.err != nil {
		// Failed loads are not cached so a fixed asset can be retried.
		l.mu.Lock()
		if l.entries[id] == e {
			delete(l.entries, id)
		}
		l.mu.Unlock()
		l.log.Warn("cosmetic load failed", zap.String("id", id), zap.Error(e.err))
	} else {
		l.log.Debug("cosmetic loaded",
			zap.String("id", id),
			zap.Int("animations", e.cos.Model.AnimationCount()),
			zap.Int("skin_mask_parts", len(e.cos.Model.SkinMask)))
	}
	close(e.done)
}

func (l *Library) read(id string) (*Cosmetic, error) {
	dir, err := l.Resolve(id)
	if err != nil {
		return nil, err
	}

	geo, err := formats.ParseGeometryFile(filepath.Join(dir, GeometryFile))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	var anims *formats.AnimationFile
	if path := filepath.Join(dir, AnimationsFile); fileExists(path) {
		if anims, err = formats.ParseAnimationsFile(path); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
	}
	m, err := model.Build(geo, anims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	texPath, ok := texture.Find(dir, TextureStem)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTexture, id)
	}
	img, err := texture.Load(texPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	if maskPath, ok := texture.Find(dir, SkinMaskStem); ok {
		maskImg, err := texture.Load(maskPath)
		if err != nil {
			return nil, fmt.Errorf("%s skin mask: %w", id, err)
		}
		if mask := skinmask.Read(maskImg); len(mask) > 0 {
			m.SkinMask = mask
		}
	}

	return &Cosmetic{ID: id, Dir: dir, Model: m, Image: img}, nil
}

// Sweep drops cached cosmetics whose model has no wearers and returns their
// ids, sorted. Loads still in flight are kept.
func (l *Library) Sweep() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var dropped []string
	for id, e := range l.entries {
		select {
		case <-e.done:
		default:
			continue
		}
		if e.cos != nil && e.cos.Model.Refs() > 0 {
			continue
		}
		delete(l.entries, id)
		dropped = append(dropped, id)
	}
	sort.Strings(dropped)
	if len(dropped) > 0 {
		l.log.Debug("cosmetics swept", zap.Strings("ids", dropped))
	}
	return dropped
}

// List returns the ids of every cosmetic found under the roots, sorted.
func (l *Library) List() ([]string, error) {
	seen := make(map[string]bool)
	for _, root := range l.roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if path == root && errors.Is(err, os.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || d.Name() != GeometryFile {
				return nil
			}
			rel, err := filepath.Rel(root, filepath.Dir(path))
			if err != nil || rel == "." {
				return nil
			}
			seen[filepath.ToSlash(rel)] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", root, err)
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of cached or loading cosmetics.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats returns cache statistics.
func (l *Library) Stats() (hits, misses int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits, l.misses
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
