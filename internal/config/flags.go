package config

import "flag"

// Overrides are command-line values applied on top of the file config.
// Zero values leave the file setting alone.
type Overrides struct {
	Config     string
	Debug      bool
	LogLevel   string
	Assets     string
	Windowed   bool
	Fullscreen bool
	Width      int
	Height     int
	Seed       uint64
	Mute       bool
}

// RegisterFlags binds the override flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	o := &Overrides{}
	fs.StringVar(&o.Config, "config", "", "Path to config file")
	fs.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.Assets, "assets", "", "Cosmetic asset root directory")
	fs.BoolVar(&o.Windowed, "windowed", false, "Run in windowed mode")
	fs.BoolVar(&o.Fullscreen, "fullscreen", false, "Run in fullscreen mode")
	fs.IntVar(&o.Width, "width", 0, "Window width")
	fs.IntVar(&o.Height, "height", 0, "Window height")
	fs.Uint64Var(&o.Seed, "seed", 0, "Animation random seed")
	fs.BoolVar(&o.Mute, "mute", false, "Start with audio muted")
	return o
}

var cli = RegisterFlags(flag.CommandLine)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return cli.Config
}

// Apply writes the set overrides into cfg.
func (o *Overrides) Apply(cfg *Config) {
	switch {
	case o.LogLevel != "":
		cfg.Logging.Level = o.LogLevel
	case o.Debug:
		cfg.Logging.Level = "debug"
	}
	if o.Assets != "" {
		// An explicit root replaces the configured search path.
		cfg.Assets.Roots = []string{o.Assets}
	}
	if o.Windowed {
		cfg.Preview.Fullscreen = false
	}
	if o.Fullscreen {
		cfg.Preview.Fullscreen = true
	}
	if o.Width > 0 {
		cfg.Preview.Width = o.Width
	}
	if o.Height > 0 {
		cfg.Preview.Height = o.Height
	}
	if o.Seed != 0 {
		cfg.Animation.Seed = o.Seed
	}
	if o.Mute {
		cfg.Audio.Muted = true
	}
}
