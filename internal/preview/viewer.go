// Package preview implements the interactive cosmetics viewer: it wears a
// configured set on an orbiting camera, animates it and plays its sounds.
package preview

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/assets"
	"github.com/Faultbox/midgard-wearables/internal/config"
	"github.com/Faultbox/midgard-wearables/internal/engine/audio"
	"github.com/Faultbox/midgard-wearables/internal/engine/camera"
	"github.com/Faultbox/midgard-wearables/internal/engine/debug"
	"github.com/Faultbox/midgard-wearables/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-wearables/internal/engine/glbackend"
	"github.com/Faultbox/midgard-wearables/internal/engine/input"
	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/internal/engine/texture"
	"github.com/Faultbox/midgard-wearables/internal/engine/wearables"
	"github.com/Faultbox/midgard-wearables/internal/engine/window"
	"github.com/Faultbox/midgard-wearables/internal/loadout"
	"github.com/Faultbox/midgard-wearables/internal/logger"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// boundsColor is the overlay color of the bounds wireframe.
var boundsColor = math.RGBA(255, 220, 0, 255)

// Viewer is the preview window and everything it drives.
type Viewer struct {
	cfg     *config.Config
	running bool

	window  *window.Window
	backend *glbackend.Backend
	capture *framebuffer.Framebuffer
	dumper  *debug.Dumper
	input   *input.Input
	camera  *camera.OrbitCamera
	audio   *audio.Player

	library    *assets.Library
	manager    *wearables.Manager
	equipped   *loadout.Equipped
	exclusions []math.Box

	skin       render.Texture
	maskedSkin render.Texture

	motion     *Motion
	vars       molang.Vars
	showBounds bool

	log *zap.Logger
}

// New opens the window and loads the configured worn set.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:        cfg,
		input:      input.New(),
		camera:     camera.NewOrbitCamera(),
		audio:      audio.New(),
		library:    assets.NewLibrary(cfg.Assets.Roots...),
		exclusions: loadout.ConfigBoxes(cfg.Preview.Exclusions),
		dumper:     debug.NewDumper("screenshots", "wearview"),
		motion:     NewMotion(),
		vars:       molang.Vars{},
		log:        logger.Named("preview"),
	}
	v.log.Info("initializing preview",
		zap.Strings("roots", cfg.Assets.Roots),
		zap.Int("worn", len(cfg.Preview.Worn)),
	)

	var err error
	v.window, err = window.New(window.Config{
		Title:      "wearview",
		Width:      cfg.Preview.Width,
		Height:     cfg.Preview.Height,
		Fullscreen: cfg.Preview.Fullscreen,
		VSync:      cfg.Preview.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The backend needs the GL context the window created.
	v.backend, err = glbackend.New()
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	w, h := v.window.DrawableSize()
	v.backend.Resize(w, h)

	v.capture, err = framebuffer.New(w, h)
	if err != nil {
		v.Close()
		return nil, err
	}

	v.manager = wearables.NewManager(v.backend, wearables.Options{
		AtlasMaxSize:    cfg.Render.AtlasMaxSize,
		SortTranslucent: cfg.Render.SortTranslucent,
		DisableClipping: !cfg.Render.ClipExclusions,
		Seed:            cfg.Animation.Seed,
	})

	v.initAudio()
	if err := v.loadSkin(); err != nil {
		v.log.Warn("skin not loaded", zap.String("path", cfg.Assets.Skin), zap.Error(err))
	}
	if err := v.equip(); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (v *Viewer) initAudio() {
	a := v.cfg.Audio
	v.audio.SetVolume(float64(a.MasterVolume), float64(a.SFXVolume), a.Muted)
	if err := v.audio.Init(); err != nil {
		v.log.Warn("audio disabled", zap.Error(err))
		return
	}
	for _, root := range v.cfg.Assets.Roots {
		n, err := v.audio.LoadDir(filepath.Join(root, "sounds"))
		if err != nil {
			v.log.Warn("loading sounds", zap.String("root", root), zap.Error(err))
			continue
		}
		v.log.Debug("sounds loaded", zap.String("root", root), zap.Int("count", n))
	}
}

func (v *Viewer) loadSkin() error {
	if v.cfg.Assets.Skin == "" {
		return nil
	}
	img, err := texture.Load(v.cfg.Assets.Skin)
	if err != nil {
		return err
	}
	v.skin, err = v.backend.CreateTexture(img)
	return err
}

// equip loads the configured worn set and hands it to the manager. The
// previous set's textures are released once the manager has moved on.
func (v *Viewer) equip() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eq, err := loadout.Equip(ctx, v.library, v.backend, v.cfg.Preview.Worn)
	if err != nil {
		return fmt.Errorf("equipping: %w", err)
	}
	err = v.manager.UpdateState(eq.Cosmetics)
	switch {
	case errors.Is(err, wearables.ErrAtlasTooLarge):
		v.log.Warn("translucent cosmetics drawn without atlas", zap.Error(err))
	case err != nil:
		eq.Release()
		return err
	}
	if v.equipped != nil {
		v.equipped.Release()
	}
	v.equipped = eq

	if b, ok := v.manager.Bounds(v.vars); ok {
		v.camera.FitToBounds(b)
	}
	v.remaskSkin(ctx)
	return nil
}

func (v *Viewer) remaskSkin(ctx context.Context) {
	if v.skin == nil || !v.cfg.Render.ApplySkinMasking {
		return
	}
	masked, err := v.manager.MaskSkin(ctx, v.skin)
	if err != nil {
		v.log.Warn("skin masking failed", zap.Error(err))
		return
	}
	if v.maskedSkin != nil && v.maskedSkin != v.skin {
		v.backend.DeleteTexture(v.maskedSkin)
	}
	v.maskedSkin = masked
}

// reload drops cached assets nobody wears and loads the worn set again.
func (v *Viewer) reload() {
	v.manager.UpdateState(nil)
	v.manager.CollectEvents(v.consume)
	if v.equipped != nil {
		v.equipped.Release()
		v.equipped = nil
	}
	swept := v.library.Sweep()
	v.log.Info("reloading", zap.Strings("swept", swept))
	if err := v.equip(); err != nil {
		v.log.Error("reload failed", zap.Error(err))
	}
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting preview loop")

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() {
			break
		}
		for _, event := range v.input.Events() {
			v.handleEvent(event)
		}

		v.update(dt)
		v.render()
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			hits, misses := v.library.Stats()
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Int("sounds_playing", v.audio.Playing()),
				zap.Int("cache_hits", hits),
				zap.Int("cache_misses", misses),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (v *Viewer) handleEvent(event input.Event) {
	switch event.Type {
	case input.EventQuit:
		v.running = false
	case input.EventWindowResize:
		w, h := v.window.DrawableSize()
		v.backend.Resize(w, h)
	case input.EventMouseDrag:
		v.camera.HandleDrag(event.DX, event.DY)
	case input.EventMouseWheel:
		v.camera.HandleZoom(event.DY)
	case input.EventKeyDown:
		v.handleKey(event.Key)
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_E:
		v.manager.Trigger(formats.EventEmote)
	case sdl.SCANCODE_F:
		v.manager.Trigger(formats.EventInteract)
	case sdl.SCANCODE_B:
		v.showBounds = !v.showBounds
	case sdl.SCANCODE_M:
		a := &v.cfg.Audio
		a.Muted = !a.Muted
		v.audio.SetVolume(float64(a.MasterVolume), float64(a.SFXVolume), a.Muted)
	case sdl.SCANCODE_R:
		v.reload()
	case sdl.SCANCODE_F3:
		if logger.Level() == "debug" {
			logger.SetLevel(v.cfg.Logging.Level)
		} else {
			logger.SetLevel("debug")
		}
		v.log.Info("log level changed", zap.String("level", logger.Level()))
	case sdl.SCANCODE_F5:
		if err := v.cfg.Save(); err != nil {
			v.log.Error("saving settings", zap.Error(err))
		} else {
			v.log.Info("settings saved", zap.String("dir", config.ConfigDir()))
		}
	case sdl.SCANCODE_F9:
		v.dumpSkin()
	case sdl.SCANCODE_F11:
		full := !v.window.Fullscreen()
		if err := v.window.SetFullscreen(full); err != nil {
			v.log.Warn("toggling fullscreen", zap.Error(err))
			return
		}
		v.cfg.Preview.Fullscreen = full
	case sdl.SCANCODE_F12:
		v.screenshot()
	}
}

func (v *Viewer) update(dt float32) {
	ax := v.input.Axis(sdl.SCANCODE_A, sdl.SCANCODE_D)
	az := v.input.Axis(sdl.SCANCODE_S, sdl.SCANCODE_W)
	if v.motion.Step(dt, ax, az) {
		v.manager.Trigger(formats.EventIdle)
	}
	v.motion.Apply(v.vars)

	v.manager.Update(dt, v.vars)
	v.manager.CollectEvents(v.consume)
}

func (v *Viewer) consume(ev wearables.Event) {
	if v.audio.Handle(ev.Event) {
		return
	}
	v.log.Debug("cosmetic event", zap.String("slot", ev.Slot), zap.Any("event", ev.Event))
}

func (v *Viewer) render() {
	w, h := v.window.DrawableSize()
	v.drawScene(float32(w) / float32(max(h, 1)))
}

func (v *Viewer) drawScene(aspect float32) {
	view := v.camera.ViewMatrix()
	v.backend.Begin(v.camera.ProjectionMatrix(aspect).Mul4(view))
	v.manager.Render(v.backend, view, v.exclusions, math.FullBright)

	if v.showBounds {
		if b, ok := v.manager.Bounds(v.vars); ok {
			v.backend.DrawLines(debug.BoxWireframe(b, debug.DefaultPadding), boundsColor)
		}
		v.backend.DrawLines(debug.BoxesWireframe(v.exclusions, 0), math.RGBA(255, 60, 60, 255))
	}
}

// screenshot renders the current frame offscreen and writes it to disk.
func (v *Viewer) screenshot() {
	w, h := v.window.DrawableSize()
	v.capture.Resize(w, h)
	img := v.capture.Capture(func() {
		v.drawScene(float32(w) / float32(max(h, 1)))
	})

	path, err := v.dumper.Capture(img)
	if err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", path))
}

// dumpSkin writes the masked skin texture to disk.
func (v *Viewer) dumpSkin() {
	if v.maskedSkin == nil {
		v.log.Warn("no masked skin to dump")
		return
	}
	res := <-v.backend.ReadTexture(v.maskedSkin)
	if res.Err != nil {
		v.log.Error("reading skin", zap.Error(res.Err))
		return
	}
	path, err := v.dumper.Capture(res.Image)
	if err != nil {
		v.log.Error("skin dump failed", zap.Error(err))
		return
	}
	v.log.Info("masked skin saved", zap.String("path", path))
}

// Close releases everything the viewer owns.
func (v *Viewer) Close() {
	v.log.Info("closing preview")

	if v.manager != nil {
		v.manager.Close()
	}
	if v.equipped != nil {
		v.equipped.Release()
	}
	v.audio.Close()
	if v.capture != nil {
		v.capture.Destroy()
	}
	if v.backend != nil {
		v.backend.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

