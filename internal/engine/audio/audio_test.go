package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-wearables/internal/engine/animation"
)

// testWAV builds a 16-bit stereo PCM clip of n frames.
func testWAV(n int) []byte {
	dataLen := uint32(n * 4)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(44100))
	binary.Write(&buf, binary.LittleEndian, uint32(44100*4))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	for i := 0; i < n; i++ {
		binary.Write(&buf, binary.LittleEndian, int16(i*100))
		binary.Write(&buf, binary.LittleEndian, int16(-i*100))
	}
	return buf.Bytes()
}

func TestVolumeToLog(t *testing.T) {
	tests := []struct {
		vol  float64
		want float64
	}{
		{1.0, 0},
		{0.5, -1},
		{0.25, -2},
		{0.0, -10},
	}

	for _, tt := range tests {
		if got := volumeToLog(tt.vol); got != tt.want {
			t.Errorf("volumeToLog(%f) = %f, want %f", tt.vol, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{0, 0, 1, 0},
		{1, 0, 1, 1},
	}

	for _, tt := range tests {
		got := clamp(tt.v, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("clamp(%f, %f, %f) = %f, want %f", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestSetVolume(t *testing.T) {
	p := New()
	if p.Volume() != 1.0 {
		t.Errorf("default volume = %f, want 1.0", p.Volume())
	}

	p.SetVolume(0.5, 0.5, false)
	if p.Volume() != 0.25 {
		t.Errorf("volume = %f, want 0.25", p.Volume())
	}

	p.SetVolume(2.0, -1.0, false)
	if p.Volume() != 0 {
		t.Errorf("volume = %f, want 0 (clamped)", p.Volume())
	}

	p.SetVolume(1, 1, true)
	if p.Volume() != 0 {
		t.Errorf("muted volume = %f, want 0", p.Volume())
	}
}

func TestPlay(t *testing.T) {
	p := New()
	if err := p.Load("cape.flap", testWAV(64)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.Has("cape.flap") {
		t.Fatal("clip not registered")
	}

	if err := p.Play(animation.Sound{Name: "cape.flap", Volume: 1, Pitch: 1}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := p.Play(animation.Sound{Name: "cape.flap", Pitch: 1.5}); err != nil {
		t.Fatalf("Play pitched: %v", err)
	}
	if p.Playing() != 2 {
		t.Errorf("Playing() = %d, want 2", p.Playing())
	}

	if err := p.Play(animation.Sound{Name: "nope"}); !errors.Is(err, ErrUnknownSound) {
		t.Errorf("expected ErrUnknownSound, got %v", err)
	}

	p.SetVolume(1, 1, true)
	if err := p.Play(animation.Sound{Name: "cape.flap"}); err != nil {
		t.Fatalf("Play muted: %v", err)
	}
	if p.Playing() != 2 {
		t.Error("muted player queued a clip")
	}
}

func TestHandle(t *testing.T) {
	p := New()
	if err := p.Load("chime", testWAV(16)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if p.Handle(animation.Finished{Animation: "spin"}) {
		t.Error("Handle accepted a non-sound event")
	}
	if !p.Handle(animation.Sound{Name: "chime"}) {
		t.Error("Handle rejected a sound event")
	}
	if !p.Handle(animation.Sound{Name: "unknown"}) {
		t.Error("unknown sounds are still sound events")
	}
	if p.Playing() != 1 {
		t.Errorf("Playing() = %d, want 1", p.Playing())
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "cape"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	files := map[string][]byte{
		"cape/flap.wav": testWAV(8),
		"chime.WAV":     testWAV(8),
		"readme.txt":    []byte("not audio"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), data, 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	p := New()
	n, err := p.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded %d clips, want 2", n)
	}
	for _, name := range []string{"cape.flap", "chime"} {
		if !p.Has(name) {
			t.Errorf("clip %q missing", name)
		}
	}

	if err := p.Load("bad", []byte("RIFF")); err == nil {
		t.Error("expected decode error")
	}
}
