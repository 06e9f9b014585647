// Package window owns the SDL2 preview window and its OpenGL context.
package window

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/logger"
)

func init() {
	// GL calls must stay on the thread that created the context.
	runtime.LockOSThread()
}

// Config describes the window to open.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
}

// Window is an SDL2 window with a current OpenGL 4.1 core context.
type Window struct {
	cfg  Config
	win  *sdl.Window
	ctx  sdl.GLContext
	log  *zap.Logger
	full bool
}

// 4.1 core is the newest profile macOS offers.
var glAttributes = []struct {
	attr  sdl.GLattr
	value int
}{
	{sdl.GL_CONTEXT_MAJOR_VERSION, 4},
	{sdl.GL_CONTEXT_MINOR_VERSION, 1},
	{sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE},
	{sdl.GL_DOUBLEBUFFER, 1},
	{sdl.GL_DEPTH_SIZE, 24},
}

// New opens the window and makes its GL context current.
func New(cfg Config) (_ *Window, err error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("window size %dx%d", cfg.Width, cfg.Height)
	}
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}

	w := &Window{cfg: cfg, log: logger.Named("window"), full: cfg.Fullscreen}
	defer func() {
		if err != nil {
			w.Close()
		}
	}()

	for _, a := range glAttributes {
		if err := sdl.GLSetAttribute(a.attr, a.value); err != nil {
			return nil, fmt.Errorf("gl attribute %d: %w", a.attr, err)
		}
	}

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	w.win, err = sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width), int32(cfg.Height), flags)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	if w.ctx, err = w.win.GLCreateContext(); err != nil {
		return nil, fmt.Errorf("create gl context: %w", err)
	}
	w.SetVSync(cfg.VSync)

	dw, dh := w.DrawableSize()
	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("drawable_width", dw),
		zap.Int("drawable_height", dh),
		zap.Bool("fullscreen", cfg.Fullscreen),
	)
	return w, nil
}

// Close releases the context and the window and shuts SDL down.
func (w *Window) Close() {
	if w.ctx != nil {
		sdl.GLDeleteContext(w.ctx)
		w.ctx = nil
	}
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
		w.log.Info("window closed")
	}
	sdl.Quit()
}

// SetVSync toggles swap synchronisation. Drivers may refuse.
func (w *Window) SetVSync(on bool) {
	interval := 0
	if on {
		interval = 1
	}
	if err := sdl.GLSetSwapInterval(interval); err != nil {
		w.log.Warn("swap interval rejected", zap.Int("interval", interval), zap.Error(err))
	}
}

// Fullscreen reports whether the window covers the desktop.
func (w *Window) Fullscreen() bool { return w.full }

// SetFullscreen switches between desktop fullscreen and the configured
// window size.
func (w *Window) SetFullscreen(on bool) error {
	if on == w.full {
		return nil
	}
	var mode uint32
	if on {
		mode = sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	if err := w.win.SetFullscreen(mode); err != nil {
		return fmt.Errorf("set fullscreen: %w", err)
	}
	if !on {
		w.win.SetSize(int32(w.cfg.Width), int32(w.cfg.Height))
	}
	w.full = on
	return nil
}

// SwapBuffers presents the back buffer.
func (w *Window) SwapBuffers() {
	w.win.GLSwap()
}

// DrawableSize returns the framebuffer size in pixels, which differs from
// the window size on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.win.GLGetDrawableSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.win.SetTitle(title)
}
