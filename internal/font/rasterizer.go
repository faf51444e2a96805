// internal/font/rasterizer.go
package font

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"label-service/internal/sbpl"
)

// Rasterizer renders single characters into monochrome bitmaps for the
// encoder. Faces are parsed once per (font, size) pair and cached; the
// cache is never evicted, label services use a handful of faces.
type Rasterizer struct {
	fontDir string
	logger  *zap.Logger
	mutex   sync.Mutex
	fonts   map[string]*opentype.Font
	faces   map[faceKey]font.Face
}

type faceKey struct {
	name string
	size int
}

// NewRasterizer creates a rasterizer that resolves font names against
// fontDir. The builtin names "goregular" and "gomono" resolve without
// touching the filesystem.
func NewRasterizer(fontDir string, logger *zap.Logger) *Rasterizer {
	return &Rasterizer{
		fontDir: fontDir,
		logger:  logger.With(zap.String("component", "rasterizer")),
		fonts:   make(map[string]*opentype.Font),
		faces:   make(map[faceKey]font.Face),
	}
}

// RenderGlyph renders one character of the named font at the given size
// in device units (1/64 pt). Whitespace produces an inkless bitmap that
// only carries an advance width.
func (r *Rasterizer) RenderGlyph(c rune, fontName string, size int) (*sbpl.GlyphBitmap, error) {
	// Whitespace never reaches the face: the device advance is fixed by
	// the character class, not the font metrics.
	switch c {
	case ' ', '\t':
		return &sbpl.GlyphBitmap{Char: c, Width: size / 144, Expansion: size}, nil
	case '　': // ideographic space, full character cell
		return &sbpl.GlyphBitmap{Char: c, Width: size / 72, Expansion: size}, nil
	}

	face, err := r.face(fontName, size)
	if err != nil {
		return nil, err
	}

	dr, mask, maskp, _, ok := face.Glyph(fixed.Point26_6{}, c)
	if !ok {
		return nil, fmt.Errorf("font %q has no glyph for %q", fontName, c)
	}

	width := dr.Dx()
	rows := dr.Dy()
	stride := (width + 7) / 8
	buffer := make([]byte, rows*stride)

	// Threshold the antialiased mask to 1 bpp, MSB first, the bit order
	// the printer's bitmap command expects.
	for y := 0; y < rows; y++ {
		for x := 0; x < width; x++ {
			_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
			if a >= 0x8000 {
				buffer[y*stride+x/8] |= 0x80 >> (x % 8)
			}
		}
	}

	return &sbpl.GlyphBitmap{
		Char:       c,
		Buffer:     buffer,
		Stride:     stride,
		Rows:       rows,
		Width:      width,
		BitmapTop:  -dr.Min.Y,
		BitmapLeft: dr.Min.X,
		Expansion:  size,
	}, nil
}

// face returns the cached face for (name, size), loading and parsing
// the font on first use.
func (r *Rasterizer) face(name string, size int) (font.Face, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := faceKey{name: name, size: size}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}

	parsed, ok := r.fonts[name]
	if !ok {
		data, err := r.fontData(name)
		if err != nil {
			return nil, err
		}
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %q: %w", name, err)
		}
		r.fonts[name] = parsed
	}

	// Device units are 1/64 pt; at 72 dpi one point is one pixel.
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size) / 64,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face for %q: %w", name, err)
	}

	r.logger.Debug("Font face loaded", zap.String("font", name), zap.Int("size", size))
	r.faces[key] = face
	return face, nil
}

// fontData resolves a font name to raw TTF bytes: builtin names first,
// then files under the configured font directory.
func (r *Rasterizer) fontData(name string) ([]byte, error) {
	switch name {
	case "goregular":
		return goregular.TTF, nil
	case "gomono":
		return gomono.TTF, nil
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.fontDir, path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".ttf" && ext != ".otf" {
		path += ".ttf"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load font %q: %w", name, err)
	}
	return data, nil
}
