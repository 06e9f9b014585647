// Package audio plays the sound effects requested by cosmetic animations.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/engine/animation"
	"github.com/Faultbox/midgard-wearables/internal/logger"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// ErrUnknownSound is returned when a sound name has no loaded clip.
var ErrUnknownSound = errors.New("unknown sound")

// Player mixes sound effect clips. Clips are decoded once into memory and
// played by name. Without Init the mixer is not attached to a device.
type Player struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  beep.SampleRate

	clips map[string]*beep.Buffer

	// Volume settings (0.0 to 1.0)
	masterVolume float64
	sfxVolume    float64
	muted        bool

	mixer *beep.Mixer
	log   *zap.Logger
}

// New creates a player with full volume.
func New() *Player {
	return &Player{
		sampleRate:   DefaultSampleRate,
		clips:        make(map[string]*beep.Buffer),
		masterVolume: 1.0,
		sfxVolume:    1.0,
		mixer:        &beep.Mixer{},
		log:          logger.Named("audio"),
	}
}

// Init opens the audio device and starts the mixer.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/30)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p.mixer)
	p.initialized = true
	p.log.Info("audio initialized", zap.Int("sample_rate", int(p.sampleRate)))
	return nil
}

// Close stops playback and releases the device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Clear()
	speaker.Close()
	p.initialized = false
}

// SetVolume sets master and sound effect volume (0.0 to 1.0) and the mute
// switch.
func (p *Player) SetVolume(master, sfx float64, muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.masterVolume = clamp(master, 0, 1)
	p.sfxVolume = clamp(sfx, 0, 1)
	p.muted = muted
}

// Volume returns the effective sound effect volume.
func (p *Player) Volume() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.muted {
		return 0
	}
	return p.masterVolume * p.sfxVolume
}

// Load decodes a WAV clip and registers it under name, replacing any clip
// of that name.
func (p *Player) Load(name string, data []byte) error {
	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		src = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: p.sampleRate, NumChannels: 2, Precision: 2})
	buf.Append(src)

	p.mu.Lock()
	p.clips[name] = buf
	p.mu.Unlock()
	return nil
}

// LoadDir registers every .wav file under dir. A clip's name is its path
// relative to dir without the extension, with separators replaced by dots:
// cape/flap.wav is "cape.flap".
func (p *Player) LoadDir(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.ReplaceAll(filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel))), "/", ".")
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := p.Load(name, data); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("loading sounds from %s: %w", dir, err)
	}
	p.log.Debug("sounds loaded", zap.String("dir", dir), zap.Int("count", n))
	return n, nil
}

// Has reports whether a clip is registered under name.
func (p *Player) Has(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.clips[name]
	return ok
}

// Play starts the clip requested by s. Volume scales the player volume and
// Pitch the playback rate; zero means 1 for both.
func (p *Player) Play(s animation.Sound) error {
	p.mu.RLock()
	buf, ok := p.clips[s.Name]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSound, s.Name)
	}

	vol := p.Volume()
	if s.Volume > 0 {
		vol *= float64(s.Volume)
	}
	if vol <= 0 {
		return nil
	}

	var src beep.Streamer = buf.Streamer(0, buf.Len())
	if s.Pitch > 0 && s.Pitch != 1 {
		src = beep.ResampleRatio(4, float64(s.Pitch), src)
	}
	voiced := &effects.Volume{
		Streamer: src,
		Base:     2,
		Volume:   volumeToLog(vol),
	}

	p.mu.RLock()
	initialized := p.initialized
	p.mu.RUnlock()
	if initialized {
		speaker.Lock()
		p.mixer.Add(voiced)
		speaker.Unlock()
	} else {
		p.mixer.Add(voiced)
	}
	return nil
}

// Handle plays e if it is a sound request and reports whether it was one.
// Unknown sounds are logged and skipped.
func (p *Player) Handle(e animation.Emitted) bool {
	s, ok := e.(animation.Sound)
	if !ok {
		return false
	}
	if err := p.Play(s); err != nil {
		p.log.Debug("sound skipped", zap.String("name", s.Name), zap.Error(err))
	}
	return true
}

// Playing returns the number of clips in the mixer.
func (p *Player) Playing() int {
	p.mu.RLock()
	initialized := p.initialized
	p.mu.RUnlock()
	if initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	return p.mixer.Len()
}

// volumeToLog maps a linear 0-1 volume to the base-2 exponent used by
// effects.Volume.
func volumeToLog(vol float64) float64 {
	if vol <= 0 {
		return -10
	}
	return math.Log2(vol)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
