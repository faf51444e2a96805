// internal/sbpl/generator_test.go
package sbpl

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

func TestPositionEncoding(t *testing.T) {
	cases := []struct {
		x, y int
		want string
	}{
		{0, 0, "\x1bV0000\x1bH0000"},
		{100, 200, "\x1bV0200\x1bH0100"},
		{9999, 1, "\x1bV0001\x1bH9999"},
	}
	for _, c := range cases {
		g := NewGenerator(nil)
		if err := g.Position(Point{X: c.x, Y: c.y}); err != nil {
			t.Fatalf("Position(%d, %d): %v", c.x, c.y, err)
		}
		if got := string(g.ToBytes()); got != c.want {
			t.Errorf("Position(%d, %d) = %q, want %q", c.x, c.y, got, c.want)
		}
	}
}

func TestPositionFieldsAlwaysFourDigits(t *testing.T) {
	for range 50 {
		x, y := rand.IntN(10000), rand.IntN(10000)
		g := NewGenerator(nil)
		if err := g.Position(Point{X: x, Y: y}); err != nil {
			t.Fatalf("Position(%d, %d): %v", x, y, err)
		}
		want := fmt.Sprintf("\x1bV%04d\x1bH%04d", y, x)
		if got := string(g.ToBytes()); got != want {
			t.Errorf("Position(%d, %d) = %q, want %q", x, y, got, want)
		}
	}
}

func TestPositionOutOfRange(t *testing.T) {
	for _, p := range []Point{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 10000, Y: 0}, {X: 0, Y: 10000}} {
		g := NewGenerator(nil)
		err := g.Position(p)
		var rangeErr *RangeError
		if !errors.As(err, &rangeErr) {
			t.Errorf("Position(%v) = %v, want RangeError", p, err)
		}
		if g.Len() != 0 {
			t.Errorf("Position(%v) wrote %d bytes after failing validation", p, g.Len())
		}
	}
}

func TestSetLabelSizeEncodesHeightFirst(t *testing.T) {
	g := NewGenerator(nil)
	if err := g.SetLabelSize(1000, 3000); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bA1V3000H1000" {
		t.Errorf("SetLabelSize(1000, 3000) = %q", got)
	}
}

func TestLineGeometry(t *testing.T) {
	for _, l := range []Delta{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: -3, Y: 7}} {
		g := NewGenerator(nil)
		err := g.Line(l, 1)
		var geomErr *GeometryError
		if !errors.As(err, &geomErr) {
			t.Errorf("Line(%v) = %v, want GeometryError", l, err)
		}
	}

	g := NewGenerator(nil)
	if err := g.Line(Delta{X: 100}, 1); err != nil {
		t.Fatalf("horizontal line: %v", err)
	}
	if got := string(g.ToBytes()); got != "\x1bFW01H0100" {
		t.Errorf("horizontal line = %q", got)
	}

	g = NewGenerator(nil)
	if err := g.Line(Delta{Y: 456}, 12); err != nil {
		t.Fatalf("vertical line: %v", err)
	}
	if got := string(g.ToBytes()); got != "\x1bFW12V0456" {
		t.Errorf("vertical line = %q", got)
	}
}

func TestLineThicknessRange(t *testing.T) {
	for _, thickness := range []int{0, 100, -1} {
		g := NewGenerator(nil)
		err := g.Line(Delta{X: 10}, thickness)
		var rangeErr *RangeError
		if !errors.As(err, &rangeErr) {
			t.Errorf("Line thickness %d = %v, want RangeError", thickness, err)
		}
	}
}

func TestRectangle(t *testing.T) {
	g := NewGenerator(nil)
	if err := g.Rectangle(Delta{X: 123, Y: 456}, 2, 3); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bFW0203V0456H0123" {
		t.Errorf("Rectangle = %q", got)
	}
}

func TestRotateCodes(t *testing.T) {
	cases := []struct {
		angle Rotation
		want  string
	}{
		{Rotate0, "\x1b%0"},
		{Rotate90, "\x1b%1"},
		{Rotate180, "\x1b%2"},
		{Rotate270, "\x1b%3"},
	}
	for _, c := range cases {
		g := NewGenerator(nil)
		if err := g.Rotate(c.angle); err != nil {
			t.Fatalf("Rotate(%d): %v", c.angle, err)
		}
		if got := string(g.ToBytes()); got != c.want {
			t.Errorf("Rotate(%d) = %q, want %q", c.angle, got, c.want)
		}
		if g.Rotation() != c.angle {
			t.Errorf("Rotation() = %d after Rotate(%d)", g.Rotation(), c.angle)
		}
	}

	g := NewGenerator(nil)
	err := g.Rotate(45)
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) {
		t.Errorf("Rotate(45) = %v, want RangeError", err)
	}
	if g.Rotation() != Rotate0 {
		t.Errorf("failed Rotate changed state to %d", g.Rotation())
	}
}

func TestExpansionAndText(t *testing.T) {
	g := NewGenerator(nil)
	if err := g.Expansion(6, 2, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.WriteText("ABC"); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bP00\x1bL0602\x1bK9BABC" {
		t.Errorf("stream = %q", got)
	}
}

func TestBoldText(t *testing.T) {
	g := NewGenerator(nil)
	if err := g.BoldText("0004693003005000"); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bX22,0004693003005000" {
		t.Errorf("BoldText = %q", got)
	}
}

func TestJAN13Validation(t *testing.T) {
	g := NewGenerator(nil)
	err := g.JAN13("1234", 3, 100)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("JAN13 with 4 digits = %v, want ValidationError", err)
	}
	if g.Len() != 0 {
		t.Error("rejected JAN13 modified the stream")
	}

	if err := g.JAN13("12345678901", 3, 100); err != nil {
		t.Fatalf("JAN13 with 11 digits: %v", err)
	}
	if got := string(g.ToBytes()); got != "\x1bB30310012345678901" {
		t.Errorf("JAN13 = %q", got)
	}
}

func TestJAN8Validation(t *testing.T) {
	g := NewGenerator(nil)
	err := g.JAN8("12345", 3, 100)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("JAN8 with 5 digits = %v, want ValidationError", err)
	}
	if err := g.JAN8("123456", 3, 100); err != nil {
		t.Fatalf("JAN8 with 6 digits: %v", err)
	}
}

func TestCode39Sentinel(t *testing.T) {
	g := NewGenerator(nil)
	if err := g.Code39("HELLO", 3, 100); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bB103100*HELLO*" {
		t.Errorf("Code39 = %q", got)
	}

	g = NewGenerator(nil)
	if err := g.Code39("*HELLO*", 3, 100); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bB103100*HELLO*" {
		t.Errorf("Code39 with explicit sentinels = %q", got)
	}
}

func TestCode128StartCodes(t *testing.T) {
	cases := []struct {
		start byte
		want  string
	}{
		{Code128StartB, "\x1bBG03100>F1234"},
		{Code128StartA, "\x1bBG03100>G>F1234"},
		{Code128StartC, "\x1bBG03100>I>F1234"},
		{0, "\x1bBG03100>F1234"},
	}
	for _, c := range cases {
		g := NewGenerator(nil)
		if err := g.Code128("1234", 3, 100, c.start); err != nil {
			t.Fatalf("Code128 start %q: %v", c.start, err)
		}
		if got := string(g.ToBytes()); got != c.want {
			t.Errorf("Code128 start %q = %q, want %q", c.start, got, c.want)
		}
	}
}

func TestCode93CarriesLength(t *testing.T) {
	g := NewGenerator(nil)
	if err := g.Code93("ABCDEF", 2, 150); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bBC0215006ABCDEF" {
		t.Errorf("Code93 = %q", got)
	}
}

func TestBarcodeRatio(t *testing.T) {
	g := NewGenerator(nil)
	g.BarcodeRatio("1:2")
	if err := g.Codabar("123", 3, 100); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bD003100123" {
		t.Errorf("Codabar at 1:2 = %q", got)
	}

	// Unknown ratios silently fall back to 1:3.
	g = NewGenerator(nil)
	g.BarcodeRatio("7:1")
	if err := g.Codabar("123", 3, 100); err != nil {
		t.Fatal(err)
	}
	if got := string(g.ToBytes()); got != "\x1bB003100123" {
		t.Errorf("Codabar after unknown ratio = %q", got)
	}
}

func TestFramingOrder(t *testing.T) {
	var framingErr *FramingError

	g := NewGenerator(nil)
	if err := g.BeginPage(); !errors.As(err, &framingErr) {
		t.Errorf("BeginPage outside packet = %v, want FramingError", err)
	}
	if err := g.EndPacket(); !errors.As(err, &framingErr) {
		t.Errorf("EndPacket without open = %v, want FramingError", err)
	}
	if err := g.BeginPacket(); err != nil {
		t.Fatal(err)
	}
	if err := g.BeginPacket(); !errors.As(err, &framingErr) {
		t.Errorf("nested BeginPacket = %v, want FramingError", err)
	}
	if err := g.BeginPage(); err != nil {
		t.Fatal(err)
	}
	if err := g.EndPacket(); !errors.As(err, &framingErr) {
		t.Errorf("EndPacket with open page = %v, want FramingError", err)
	}
	if err := g.EndPage(); err != nil {
		t.Fatal(err)
	}
	if err := g.EndPacket(); err != nil {
		t.Fatal(err)
	}
}

func TestScopedFramingClosesOnError(t *testing.T) {
	g := NewGenerator(nil)
	boom := errors.New("boom")

	err := g.Packet(func(g *Generator) error {
		return g.Page(func(g *Generator) error {
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("scoped framing swallowed the inner error: %v", err)
	}

	want := []byte{STX, ESC, 'A', ESC, 'Z', ETX}
	if !bytes.Equal(g.ToBytes(), want) {
		t.Errorf("stream = %q, want %q (closing markers emitted despite the error)", g.ToBytes(), want)
	}
}

func TestToBytesNonDestructive(t *testing.T) {
	g := NewGenerator(nil)
	if err := g.BeginPacket(); err != nil {
		t.Fatal(err)
	}
	first := g.ToBytes()
	second := g.ToBytes()
	if !bytes.Equal(first, second) {
		t.Error("ToBytes drained the stream")
	}

	// Mutating the returned slice must not touch the buffer.
	first[0] = 0xFF
	if g.ToBytes()[0] != STX {
		t.Error("ToBytes returned an aliased buffer")
	}
}

// Ticket-style label covering the whole framing path, mirroring how a label
// job drives the generator end to end.
func TestGenerateTicketStream(t *testing.T) {
	g := NewGenerator(nil)
	err := g.Packet(func(g *Generator) error {
		return g.Page(func(g *Generator) error {
			if err := g.SetLabelSize(1000, 3000); err != nil {
				return err
			}
			if err := g.Rotate(Rotate270); err != nil {
				return err
			}
			if err := g.Position(Point{X: 260, Y: 930}); err != nil {
				return err
			}
			if err := g.Codabar("0004693003005000", 3, 100); err != nil {
				return err
			}
			return g.Print(1)
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	stream := g.ToBytes()
	if stream[0] != STX {
		t.Errorf("stream starts with %#x, want STX", stream[0])
	}
	if stream[len(stream)-1] != ETX {
		t.Errorf("stream ends with %#x, want ETX", stream[len(stream)-1])
	}
	for _, part := range []string{
		"\x1bA",
		"\x1bA1V3000H1000",
		"\x1b%3",
		"\x1bV0930\x1bH0260",
		"\x1bB0031000004693003005000",
		"\x1bQ1",
		"\x1bZ",
	} {
		if !bytes.Contains(stream, []byte(part)) {
			t.Errorf("stream %q missing %q", stream, part)
		}
	}
	if n := bytes.Count(stream, []byte{ETX}); n != 1 {
		t.Errorf("stream has %d ETX bytes, want exactly 1 (never auto-terminated)", n)
	}
}
