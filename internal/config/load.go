package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalid reports a config value outside its allowed range.
var ErrInvalid = errors.New("invalid config value")

// Load resolves the configuration from defaults, the config file and the
// process command line, in increasing priority.
func Load() (*Config, error) {
	return LoadWith(cli)
}

// LoadWith is Load with an explicit set of overrides.
func LoadWith(o *Overrides) (*Config, error) {
	cfg := Default()

	path := o.Config
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	o.Apply(cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config, working dir first.
func findConfigFile() string {
	for _, dir := range []string{".", ConfigDir()} {
		path := filepath.Join(dir, FileName)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	const app = "MidgardWearables"
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", app)
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), app)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "midgard-wearables")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "midgard-wearables")
}

// loadFromFile merges the YAML file at path into cfg. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.Render.AtlasMaxSize < 0 {
		return fmt.Errorf("%w: render.atlas_max_size %d", ErrInvalid, c.Render.AtlasMaxSize)
	}
	if c.Preview.Width < 0 || c.Preview.Height < 0 {
		return fmt.Errorf("%w: preview size %dx%d", ErrInvalid, c.Preview.Width, c.Preview.Height)
	}
	for i, w := range c.Preview.Worn {
		if w.Slot == "" || w.ID == "" {
			return fmt.Errorf("%w: preview.worn[%d] needs slot and id", ErrInvalid, i)
		}
	}
	for _, v := range []float32{c.Audio.MasterVolume, c.Audio.SFXVolume} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: volume %v outside [0, 1]", ErrInvalid, v)
		}
	}
	return nil
}
