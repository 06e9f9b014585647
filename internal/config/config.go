// Package config handles wearables engine configuration loading and management.
package config

// Config holds all engine and tool settings.
type Config struct {
	Assets    AssetsConfig    `yaml:"assets"`
	Render    RenderConfig    `yaml:"render"`
	Animation AnimationConfig `yaml:"animation"`
	Audio     AudioConfig     `yaml:"audio"`
	Preview   PreviewConfig   `yaml:"preview"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AssetsConfig holds cosmetic asset locations.
type AssetsConfig struct {
	Roots []string `yaml:"roots"` // Directories searched for cosmetic folders
	Skin  string   `yaml:"skin"`  // Avatar skin texture
}

// RenderConfig holds composition settings.
type RenderConfig struct {
	AtlasMaxSize     int  `yaml:"atlas_max_size"` // Largest atlas edge in pixels
	SortTranslucent  bool `yaml:"sort_translucent"`
	ClipExclusions   bool `yaml:"clip_exclusions"`
	ApplySkinMasking bool `yaml:"apply_skin_masking"`
}

// AnimationConfig holds animation state machine settings.
type AnimationConfig struct {
	Seed uint64 `yaml:"seed"` // 0 picks a random seed per instance
}

// AudioConfig holds audio settings.
type AudioConfig struct {
	MasterVolume float32 `yaml:"master_volume"`
	SFXVolume    float32 `yaml:"sfx_volume"`
	Muted        bool    `yaml:"muted"`
}

// PreviewConfig holds settings of the preview window.
type PreviewConfig struct {
	Width      int      `yaml:"width"`
	Height     int      `yaml:"height"`
	Fullscreen bool     `yaml:"fullscreen"`
	VSync      bool     `yaml:"vsync"`
	Worn       []Worn   `yaml:"worn"`
	Exclusions [][6]int `yaml:"exclusions"` // min x,y,z then max x,y,z
}

// Worn is one cosmetic equipped in the preview.
type Worn struct {
	Slot   string `yaml:"slot"`
	ID     string `yaml:"id"`
	Offset [3]int `yaml:"offset"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			Roots: []string{"assets"},
			Skin:  "",
		},
		Render: RenderConfig{
			AtlasMaxSize:     2048,
			SortTranslucent:  true,
			ClipExclusions:   true,
			ApplySkinMasking: true,
		},
		Audio: AudioConfig{
			MasterVolume: 0.8,
			SFXVolume:    0.8,
			Muted:        false,
		},
		Preview: PreviewConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
