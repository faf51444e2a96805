// internal/job/dispatcher.go
package job

import (
	"fmt"

	"label-service/internal/sbpl"
)

// Encode renders a parsed descriptor into an SBPL byte stream. Each page
// becomes one packet/page frame; instruction order within a page is
// preserved exactly.
func Encode(desc *Descriptor, g *sbpl.Generator) error {
	for i, page := range desc.Pages {
		err := g.Packet(func(g *sbpl.Generator) error {
			return g.Page(func(g *sbpl.Generator) error {
				return encodePage(page, g)
			})
		})
		if err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
	}
	return nil
}

func encodePage(page Page, g *sbpl.Generator) error {
	for i, inst := range page {
		if err := apply(inst, g); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}

func apply(inst Instruction, g *sbpl.Generator) error {
	switch {
	case inst.Comment != "":
		return nil

	case inst.SetLabelSize != nil:
		return g.SetLabelSize(inst.SetLabelSize.W, inst.SetLabelSize.H)

	case inst.Line != nil:
		if err := g.Position(inst.Line.Pos); err != nil {
			return err
		}
		return g.Line(inst.Line.Length, inst.Line.Thickness)

	case inst.Rectangle != nil:
		if err := g.Position(inst.Rectangle.Pos); err != nil {
			return err
		}
		return g.Rectangle(inst.Rectangle.Size, inst.Rectangle.HThickness, inst.Rectangle.VThickness)

	case inst.WriteText != nil:
		if err := positionedText(inst.WriteText, g); err != nil {
			return err
		}
		return g.WriteText(inst.WriteText.Text)

	case inst.BoldText != nil:
		if err := positionedText(inst.BoldText, g); err != nil {
			return err
		}
		return g.BoldText(inst.BoldText.Text)

	case inst.BarcodeRatio != "":
		g.BarcodeRatio(inst.BarcodeRatio)
		return nil

	case inst.Barcode != nil:
		return encodeBarcode(inst.Barcode, g)

	case inst.TTFWrite != nil:
		args := inst.TTFWrite
		if err := g.Font(args.Font, args.Size, args.Pitch); err != nil {
			return err
		}
		return g.TTFWrite(args.Text, args.Pos, args.MaxWidth, args.Align)

	case inst.ShiftJIS:
		g.ShiftJIS()
		return nil

	case inst.SkipCutting:
		g.SkipCutting()
		return nil

	case inst.Print != 0:
		return g.Print(inst.Print)

	case inst.Rotate != nil:
		return g.Rotate(*inst.Rotate)
	}

	return nil
}

func positionedText(args *TextArgs, g *sbpl.Generator) error {
	if err := g.Position(args.Pos); err != nil {
		return err
	}
	return g.Expansion(args.HExpand, args.VExpand, args.Pitch)
}

func encodeBarcode(args *BarcodeArgs, g *sbpl.Generator) error {
	if err := g.Position(args.Pos); err != nil {
		return err
	}

	switch args.Symbology {
	case SymCodabar:
		return g.Codabar(args.Data, args.Pitch, args.Height)
	case SymCode39:
		return g.Code39(args.Data, args.Pitch, args.Height)
	case SymCode93:
		return g.Code93(args.Data, args.Pitch, args.Height)
	case SymCode128:
		return g.Code128(args.Data, args.Pitch, args.Height, args.StartCode)
	case SymJAN13:
		return g.JAN13(args.Data, args.Pitch, args.Height)
	case SymJAN8:
		return g.JAN8(args.Data, args.Pitch, args.Height)
	case SymITF:
		return g.ITF2of5(args.Data, args.Pitch, args.Height)
	default:
		return fmt.Errorf("unknown symbology %q", args.Symbology)
	}
}
