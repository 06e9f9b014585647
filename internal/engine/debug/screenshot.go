package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/HugoSmits86/nativewebp"
)

// Dumper writes debug images as lossless WebP files.
type Dumper struct {
	outputDir string
	prefix    string
	now       func() time.Time
}

// NewDumper creates a dumper writing into outputDir with the given file
// name prefix.
func NewDumper(outputDir, prefix string) *Dumper {
	return &Dumper{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// SetOutputDir sets the output directory.
func (d *Dumper) SetOutputDir(dir string) {
	d.outputDir = dir
}

// Filename returns the path the next capture would be written to.
func (d *Dumper) Filename() string {
	name := fmt.Sprintf("%s_%s.webp", d.prefix, d.now().Format("2006-01-02_15-04-05.000"))
	if d.outputDir != "" {
		name = filepath.Join(d.outputDir, name)
	}
	return name
}

// Capture writes img under a timestamped name and returns the path.
func (d *Dumper) Capture(img image.Image) (string, error) {
	if d.outputDir != "" {
		if err := os.MkdirAll(d.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	name := d.Filename()
	if err := WriteWebP(name, img); err != nil {
		return "", err
	}
	return name, nil
}

// WriteWebP encodes img to path as lossless WebP.
func WriteWebP(path string, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("encoding %s: empty image", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("encoding WebP: %w", err)
	}
	return f.Close()
}
