// internal/sbpl/ttf.go
package sbpl

import "fmt"

// Font selects the font session used by TTFWrite: the face name passed to
// the glyph renderer, the character size in device units and the extra
// inter-character pitch in pixels.
func (g *Generator) Font(name string, size, pitch int) error {
	if name == "" {
		return fmt.Errorf("sbpl: font name is empty")
	}
	if size <= 0 {
		return rangeErr("font size", size, 1, 1<<31-1)
	}
	if err := checkRange("font pitch", pitch, 0, 9999); err != nil {
		return err
	}
	g.fontName = name
	g.fontSize = size
	g.fontPitch = pitch
	return nil
}

// TTFWrite renders text through the glyph renderer and emits one GB command
// per character. The GB command prints a single bitmap, so layout happens
// here: a single line, truncated (not wrapped) at maxWidth, with optional
// center or right alignment inside maxWidth. maxWidth <= 0 disables both
// truncation and alignment. Line breaks are skipped; whitespace advances the
// cursor without emitting a command.
func (g *Generator) TTFWrite(text string, pos Point, maxWidth int, align Align) error {
	if g.renderer == nil {
		return fmt.Errorf("sbpl: no glyph renderer configured")
	}
	if g.fontName == "" {
		return fmt.Errorf("sbpl: no font selected, call Font first")
	}

	// Fix the glyph set for the line before anything is emitted so that
	// total width (and with it the alignment shift) is known up front.
	var glyphs []*GlyphBitmap
	totalWidth := 0
	for _, c := range text {
		if c == '\r' || c == '\n' {
			continue
		}
		glyph, err := g.renderer.RenderGlyph(c, g.fontName, g.fontSize)
		if err != nil {
			return fmt.Errorf("render glyph %q: %w", c, err)
		}
		if maxWidth > 0 && totalWidth+glyph.AdvanceX() > maxWidth {
			break
		}
		totalWidth += glyph.AdvanceX()
		glyphs = append(glyphs, glyph)
	}

	// Baseline shift by the current character size, then the alignment
	// shift, both through the rotation-aware transform.
	p := Offset(pos, Delta{X: 0, Y: -(g.fontSize / 72)}, g.rotation)
	if maxWidth > 0 {
		switch align {
		case AlignCenter:
			p = Offset(p, Delta{X: (maxWidth - totalWidth) / 2}, g.rotation)
		case AlignRight:
			p = Offset(p, Delta{X: maxWidth - totalWidth}, g.rotation)
		}
	}

	for _, glyph := range glyphs {
		if !glyph.Empty() {
			at := Offset(p, Delta{X: glyph.BitmapLeft, Y: glyph.BitmapTop}, g.rotation)
			if err := g.Position(at); err != nil {
				return err
			}
			if err := g.GlyphBlock(PackGlyph(glyph)); err != nil {
				return err
			}
		}
		p = Offset(Point{X: p.X + g.fontPitch, Y: p.Y}, Delta{X: glyph.AdvanceX()}, g.rotation)
	}
	return nil
}
