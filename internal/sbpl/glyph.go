// internal/sbpl/glyph.go
package sbpl

// GlyphRenderer is the capability the encoder needs from a font engine. It
// renders a single character at the given size (in device units, 1/64 pt at
// 72 dpi) into a monochrome bitmap. Implementations live outside this
// package; the encoder has no compile-time dependency on a rasterization
// library.
type GlyphRenderer interface {
	RenderGlyph(c rune, font string, size int) (*GlyphBitmap, error)
}

// GlyphBitmap is one rendered character as produced by a GlyphRenderer:
// a row-major 1-bit-per-pixel buffer plus the metrics needed for placement.
// Whitespace characters carry an empty Buffer and only a Width.
type GlyphBitmap struct {
	Char       rune
	Buffer     []byte // 1 bpp, MSB first, Rows*Stride bytes
	Stride     int    // bytes per row
	Rows       int
	Width      int // logical pixel width
	BitmapTop  int // vertical offset from baseline to bitmap top
	BitmapLeft int // horizontal bearing
	Expansion  int // device-unit size the glyph was rendered at
}

// AdvanceX returns the cursor advance to the next character.
func (b *GlyphBitmap) AdvanceX() int {
	return b.Width + 2*b.BitmapLeft
}

// Empty reports whether the glyph has no ink (whitespace).
func (b *GlyphBitmap) Empty() bool {
	return len(b.Buffer) == 0
}

// blockUnit is the device constraint on bitmap-image commands: the GB block
// must be square and sized in multiples of 64 pixels.
const blockUnit = 64

// PackedGlyphBlock is a GlyphBitmap repacked into the square, 64-aligned
// block layout the GB command requires. Instances are transient; the bytes
// are appended to the stream and the block discarded.
type PackedGlyphBlock struct {
	PWidth     int // pixels, == PHeight
	PHeight    int
	ByteWidth  int // PWidth / 8
	ByteHeight int
	Data       []byte // ByteHeight*8 rows of ByteWidth bytes
}

// PackGlyph builds the device block for a rendered glyph: both dimensions
// are rounded up to the next multiple of 64 and forced equal, source rows
// are copied and zero-padded to the block's byte width, and rows below the
// source bitmap are zero-filled.
func PackGlyph(b *GlyphBitmap) *PackedGlyphBlock {
	pwidth := (b.Width + blockUnit - 1) / blockUnit * blockUnit
	pheight := (b.Rows + blockUnit - 1) / blockUnit * blockUnit
	if pwidth < pheight {
		pwidth = pheight
	}
	if pheight < pwidth {
		pheight = pwidth
	}

	bwidth := pwidth / 8
	data := make([]byte, 0, pheight*bwidth)
	for r := 0; r < pheight; r++ {
		if r >= b.Rows {
			data = append(data, make([]byte, bwidth)...)
			continue
		}
		row := b.Buffer[r*b.Stride : (r+1)*b.Stride]
		data = append(data, row...)
		if b.Stride < bwidth {
			data = append(data, make([]byte, bwidth-b.Stride)...)
		}
	}

	return &PackedGlyphBlock{
		PWidth:     pwidth,
		PHeight:    pheight,
		ByteWidth:  bwidth,
		ByteHeight: pheight / 8,
		Data:       data,
	}
}
