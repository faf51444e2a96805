// internal/sbpl/generator.go
package sbpl

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Control bytes of the SBPL wire format.
const (
	STX byte = 0x02
	ETX byte = 0x03
	ESC byte = 0x1B
)

// Code 128 start code selectors.
const (
	Code128StartA = 'A'
	Code128StartB = 'B'
	Code128StartC = 'C'
)

// Alignment choices for TTFWrite.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// barRatios maps a bar-width ratio to its SBPL type prefix. Ratios other
// than 1:3 are not valid for every symbology; see the printer reference.
var barRatios = map[string]string{
	"1:3": "B",
	"1:2": "D",
	"2:5": "BD",
}

const defaultBarRatio = "B"

// Generator accumulates an SBPL byte stream. It holds the drawing, barcode
// and framing primitives as methods; executing them appends escape-sequence
// commands to the per-instance buffer. One Generator serves one label job
// and is not safe for concurrent writers.
//
// Rotation, bar ratio and the current font session are Generator state, not
// part of any individual command: they affect every subsequent emission
// until changed.
type Generator struct {
	buf        bytes.Buffer
	rotation   Rotation
	barRatio   string
	fontName   string
	fontSize   int
	fontPitch  int
	renderer   GlyphRenderer
	packetOpen bool
	pageOpen   bool
}

// NewGenerator creates an empty Generator. The renderer supplies glyph
// bitmaps for TTFWrite and may be nil for jobs that never render TrueType
// text.
func NewGenerator(renderer GlyphRenderer) *Generator {
	return &Generator{
		barRatio: defaultBarRatio,
		fontSize: 30,
		renderer: renderer,
	}
}

// ToBytes returns a copy of the accumulated stream. It is safe to call at
// any point and does not drain the buffer. The stream is never terminated
// beyond the caller's own EndPacket.
func (g *Generator) ToBytes() []byte {
	out := make([]byte, g.buf.Len())
	copy(out, g.buf.Bytes())
	return out
}

// Len returns the current stream length in bytes.
func (g *Generator) Len() int {
	return g.buf.Len()
}

// Rotation returns the current coordinate-axis rotation.
func (g *Generator) Rotation() Rotation {
	return g.rotation
}

// command appends ESC followed by an ASCII command field.
func (g *Generator) command(field string) {
	g.buf.WriteByte(ESC)
	g.buf.WriteString(field)
}

// text encodes s to CP932 and appends the raw bytes. The printer is driven
// in the Shift_JIS code page for multibyte strings.
func (g *Generator) text(s string) error {
	encoded, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), s)
	if err != nil {
		return fmt.Errorf("encode text for printer: %w", err)
	}
	g.buf.WriteString(encoded)
	return nil
}

// BeginPacket opens a transmission packet (STX). Every packet must be closed
// with EndPacket; packets do not nest.
func (g *Generator) BeginPacket() error {
	if g.packetOpen {
		return &FramingError{Op: "BeginPacket", Reason: "packet already open"}
	}
	g.buf.WriteByte(STX)
	g.packetOpen = true
	return nil
}

// EndPacket closes the current packet (ETX). Any open page must be closed
// first.
func (g *Generator) EndPacket() error {
	if !g.packetOpen {
		return &FramingError{Op: "EndPacket", Reason: "no packet open"}
	}
	if g.pageOpen {
		return &FramingError{Op: "EndPacket", Reason: "page still open"}
	}
	g.buf.WriteByte(ETX)
	g.packetOpen = false
	return nil
}

// BeginPage opens a label page (ESC A) inside the current packet.
func (g *Generator) BeginPage() error {
	if !g.packetOpen {
		return &FramingError{Op: "BeginPage", Reason: "no packet open"}
	}
	if g.pageOpen {
		return &FramingError{Op: "BeginPage", Reason: "page already open"}
	}
	g.command("A")
	g.pageOpen = true
	return nil
}

// EndPage closes the current page (ESC Z).
func (g *Generator) EndPage() error {
	if !g.pageOpen {
		return &FramingError{Op: "EndPage", Reason: "no page open"}
	}
	g.command("Z")
	g.pageOpen = false
	return nil
}

// Packet runs fn inside a BeginPacket/EndPacket pair. The closing marker is
// emitted on every exit path, including when fn returns an error, so the
// stream is never left unterminated.
func (g *Generator) Packet(fn func(*Generator) error) error {
	if err := g.BeginPacket(); err != nil {
		return err
	}
	fnErr := fn(g)
	if err := g.EndPacket(); err != nil && fnErr == nil {
		fnErr = err
	}
	return fnErr
}

// Page runs fn inside a BeginPage/EndPage pair, mirroring Packet.
func (g *Generator) Page(fn func(*Generator) error) error {
	if err := g.BeginPage(); err != nil {
		return err
	}
	fnErr := fn(g)
	if err := g.EndPage(); err != nil && fnErr == nil {
		fnErr = err
	}
	return fnErr
}

// SetLabelSize emits the label size command (ESC A1). Both dimensions are
// pixels in the 4-digit device domain.
func (g *Generator) SetLabelSize(width, height int) error {
	if err := checkRange("label width", width, 0, 9999); err != nil {
		return err
	}
	if err := checkRange("label height", height, 0, 9999); err != nil {
		return err
	}
	g.command(fmt.Sprintf("A1V%04dH%04d", height, width))
	return nil
}

// ShiftJIS selects Shift_JIS as the code page sent to the printer (ESC KC1).
// Required before printing multibyte built-in-font strings.
func (g *Generator) ShiftJIS() {
	g.command("KC1")
}

// SkipCutting suppresses the cut for the current label only (ESC CT0). The
// flag does not persist; it must be reissued on every page that needs it.
func (g *Generator) SkipCutting() {
	g.command("CT0")
}

// Print emits the copy-count command (ESC Q). Nothing is printed unless this
// is issued at least once per page.
func (g *Generator) Print(copies int) error {
	if err := checkRange("copies", copies, 1, 9999); err != nil {
		return err
	}
	g.command(fmt.Sprintf("Q%d", copies))
	return nil
}

// Rotate sets the coordinate-axis rotation (ESC %). Only 0, 90, 180 and 270
// degrees exist on the device. The rotation also becomes Generator state and
// steers every subsequent Offset computation.
func (g *Generator) Rotate(angle Rotation) error {
	var code string
	switch angle {
	case Rotate0:
		code = "%0"
	case Rotate90:
		code = "%1"
	case Rotate180:
		code = "%2"
	case Rotate270:
		code = "%3"
	default:
		return rangeErr("rotation", int(angle), 0, 270)
	}
	g.command(code)
	g.rotation = angle
	return nil
}

// Position emits the start coordinate for the commands that follow
// (ESC V, ESC H). The wire format carries the vertical field before the
// horizontal one. Position itself does not depend on the rotation state.
func (g *Generator) Position(p Point) error {
	if err := checkRange("position x", p.X, 0, 9999); err != nil {
		return err
	}
	if err := checkRange("position y", p.Y, 0, 9999); err != nil {
		return err
	}
	g.command(fmt.Sprintf("V%04d", p.Y))
	g.command(fmt.Sprintf("H%04d", p.X))
	return nil
}

// Line draws a horizontal or vertical line (ESC FW). Exactly one axis of the
// length vector must be non-zero; the device cannot draw diagonals.
func (g *Generator) Line(length Delta, thickness int) error {
	if (length.X == 0) == (length.Y == 0) {
		return &GeometryError{DX: length.X, DY: length.Y}
	}
	if err := checkRange("line thickness", thickness, 1, 99); err != nil {
		return err
	}
	axis, ln := "H", length.X
	if length.X == 0 {
		axis, ln = "V", length.Y
	}
	if err := checkRange("line length", ln, 0, 9999); err != nil {
		return err
	}
	g.command(fmt.Sprintf("FW%02d%s%04d", thickness, axis, ln))
	return nil
}

// Rectangle draws a box outline (ESC FW) with separate horizontal and
// vertical brush thicknesses.
func (g *Generator) Rectangle(size Delta, hThickness, vThickness int) error {
	if err := checkRange("rectangle width", size.X, 0, 9999); err != nil {
		return err
	}
	if err := checkRange("rectangle height", size.Y, 0, 9999); err != nil {
		return err
	}
	if err := checkRange("rectangle thickness", hThickness, 1, 99); err != nil {
		return err
	}
	if err := checkRange("rectangle thickness", vThickness, 1, 99); err != nil {
		return err
	}
	g.command(fmt.Sprintf("FW%02d%02dV%04dH%04d", hThickness, vThickness, size.Y, size.X))
	return nil
}

// Expansion sets the magnification and inter-character pitch for the
// built-in-font text commands that follow (ESC P, ESC L).
func (g *Generator) Expansion(hExpand, vExpand, pitch int) error {
	if err := checkRange("horizontal expansion", hExpand, 1, 99); err != nil {
		return err
	}
	if err := checkRange("vertical expansion", vExpand, 1, 99); err != nil {
		return err
	}
	if err := checkRange("pitch", pitch, 0, 99); err != nil {
		return err
	}
	g.command(fmt.Sprintf("P%02d", pitch))
	g.command(fmt.Sprintf("L%02d%02d", hExpand, vExpand))
	return nil
}

// WriteText prints a string with the built-in font (ESC K9B). Multibyte
// characters must exist in CP932.
func (g *Generator) WriteText(text string) error {
	g.command("K9B")
	return g.text(text)
}

// BoldText prints a string with the built-in bold font (ESC X22). Only
// alphanumeric characters and symbols are valid.
func (g *Generator) BoldText(text string) error {
	g.command("X22,")
	return g.text(text)
}

// BarcodeRatio selects the bar-width ratio for subsequent barcodes. Unknown
// ratios fall back to the 1:3 default; that is a deliberate no-op, not an
// error, because 1:3 is the only ratio every symbology supports.
func (g *Generator) BarcodeRatio(ratio string) {
	if code, ok := barRatios[ratio]; ok {
		g.barRatio = code
		return
	}
	g.barRatio = defaultBarRatio
}

func (g *Generator) barcodeField(kind string, pitch, height int) (string, error) {
	if err := checkRange("barcode pitch", pitch, 1, 99); err != nil {
		return "", err
	}
	if err := checkRange("barcode height", height, 1, 999); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%02d%03d", g.barRatio, kind, pitch, height), nil
}

// Code39 outputs a CODE 39 barcode (type 1). The payload is wrapped in the
// '*' start/stop sentinel when the caller has not done so already.
func (g *Generator) Code39(data string, pitch, height int) error {
	if data == "" {
		return &ValidationError{Symbology: "CODE39", Reason: "empty payload"}
	}
	field, err := g.barcodeField("1", pitch, height)
	if err != nil {
		return err
	}
	if data[0] != '*' {
		data = "*" + data + "*"
	}
	g.command(field)
	return g.text(data)
}

// Code93 outputs a CODE 93 barcode (ESC BC). The command carries the payload
// length as its own 2-digit field.
func (g *Generator) Code93(data string, pitch, height int) error {
	if data == "" {
		return &ValidationError{Symbology: "CODE93", Reason: "empty payload"}
	}
	if len(data) > 99 {
		return &ValidationError{Symbology: "CODE93", Reason: "payload longer than 99 characters"}
	}
	if err := checkRange("barcode pitch", pitch, 1, 99); err != nil {
		return err
	}
	if err := checkRange("barcode height", height, 1, 999); err != nil {
		return err
	}
	g.command(fmt.Sprintf("BC%02d%03d%02d", pitch, height, len(data)))
	return g.text(data)
}

// Code128 outputs a CODE 128 barcode (type G) with the requested start code.
// Subset C packs digit pairs; A and B carry the full character sets. The
// start-code and FNC1 selectors are the printer's documented '>' sequences.
func (g *Generator) Code128(data string, pitch, height int, startCode byte) error {
	if data == "" {
		return &ValidationError{Symbology: "CODE128", Reason: "empty payload"}
	}
	field, err := g.barcodeField("G", pitch, height)
	if err != nil {
		return err
	}
	var selector string
	switch startCode {
	case Code128StartA:
		selector = ">G>F"
	case Code128StartC:
		selector = ">I>F"
	case Code128StartB, 0:
		selector = ">F"
	default:
		return &ValidationError{Symbology: "CODE128", Reason: fmt.Sprintf("unknown start code %q", startCode)}
	}
	g.command(field)
	if err := g.text(selector); err != nil {
		return err
	}
	return g.text(data)
}

// JAN13 outputs a JAN/EAN 13 barcode (type 3). The device accepts 11 to 13
// digits; it computes the check digit itself for short payloads.
func (g *Generator) JAN13(data string, pitch, height int) error {
	if len(data) < 11 || len(data) > 13 {
		return &ValidationError{Symbology: "JAN13", Reason: fmt.Sprintf("payload length %d outside 11-13", len(data))}
	}
	field, err := g.barcodeField("3", pitch, height)
	if err != nil {
		return err
	}
	g.command(field)
	return g.text(data)
}

// JAN8 outputs a JAN/EAN 8 barcode (type 4). The device accepts 6 to 8
// digits.
func (g *Generator) JAN8(data string, pitch, height int) error {
	if len(data) < 6 || len(data) > 8 {
		return &ValidationError{Symbology: "JAN8", Reason: fmt.Sprintf("payload length %d outside 6-8", len(data))}
	}
	field, err := g.barcodeField("4", pitch, height)
	if err != nil {
		return err
	}
	g.command(field)
	return g.text(data)
}

// Codabar outputs an NW-7 (Codabar) barcode (type 0).
func (g *Generator) Codabar(data string, pitch, height int) error {
	if data == "" {
		return &ValidationError{Symbology: "NW-7", Reason: "empty payload"}
	}
	field, err := g.barcodeField("0", pitch, height)
	if err != nil {
		return err
	}
	g.command(field)
	return g.text(data)
}

// ITF2of5 outputs an Interleaved 2 of 5 barcode (type 2).
func (g *Generator) ITF2of5(data string, pitch, height int) error {
	if data == "" {
		return &ValidationError{Symbology: "ITF", Reason: "empty payload"}
	}
	field, err := g.barcodeField("2", pitch, height)
	if err != nil {
		return err
	}
	g.command(field)
	return g.text(data)
}

// GlyphBlock emits a packed glyph as a bitmap-image command (ESC GB) followed
// by the raw block bytes. The dimension fields are the block's byte width and
// byte height.
func (g *Generator) GlyphBlock(b *PackedGlyphBlock) error {
	if err := checkRange("glyph block byte height", b.ByteHeight, 1, 999); err != nil {
		return err
	}
	if err := checkRange("glyph block byte width", b.ByteWidth, 1, 999); err != nil {
		return err
	}
	g.command(fmt.Sprintf("GB%03d%03d", b.ByteHeight, b.ByteWidth))
	g.buf.Write(b.Data)
	return nil
}
