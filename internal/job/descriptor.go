// internal/job/descriptor.go
package job

import (
	"encoding/json"
	"fmt"

	"label-service/internal/sbpl"
)

// Descriptor is a declarative print job. The wire form is a JSON list:
// an optional leading object with connection settings, then one list of
// instruction objects per label page.
type Descriptor struct {
	Connection *ConnectionSetting
	Pages      []Page
}

// ConnectionSetting is the optional first descriptor entry naming the
// target printer. Extra keys are kept raw for the transport factory.
type ConnectionSetting struct {
	Host          string
	Port          int
	Communication string
	Options       map[string]interface{}
}

// Page is one label worth of instructions, emitted inside a single
// packet/page frame.
type Page []Instruction

// Instruction is one descriptor line resolved into exactly one encoder
// operation. It is a closed tagged variant: exactly one command field is
// non-zero, argument fields hang off the command structs, and anything
// the schema does not know is dropped at parse time.
type Instruction struct {
	Comment      string
	SetLabelSize *SizeArgs
	Line         *LineArgs
	Rectangle    *RectangleArgs
	WriteText    *TextArgs
	BoldText     *TextArgs
	BarcodeRatio string
	Barcode      *BarcodeArgs
	TTFWrite     *TTFArgs
	ShiftJIS     bool
	SkipCutting  bool
	Print        int
	Rotate       *sbpl.Rotation
}

// SizeArgs is a [first, second] integer pair.
type SizeArgs struct {
	W int
	H int
}

// LineArgs draws a straight line from a position.
type LineArgs struct {
	Pos       sbpl.Point
	Length    sbpl.Delta
	Thickness int
}

// RectangleArgs draws a box outline from a position.
type RectangleArgs struct {
	Pos        sbpl.Point
	Size       sbpl.Delta
	HThickness int
	VThickness int
}

// TextArgs prints device-font text at a position with an expansion.
type TextArgs struct {
	Pos     sbpl.Point
	HExpand int
	VExpand int
	Pitch   int
	Text    string
}

// Symbology names a barcode family the encoder can emit.
type Symbology string

const (
	SymCodabar Symbology = "codabar"
	SymCode39  Symbology = "code_39"
	SymCode93  Symbology = "code_93"
	SymCode128 Symbology = "code_128"
	SymJAN13   Symbology = "jan_13"
	SymJAN8    Symbology = "jan_8"
	SymITF     Symbology = "itf2of5"
)

// BarcodeArgs prints a barcode at a position. The wire form is the
// positional tuple [data, pitch, height] with an optional trailing
// start-code selector for Code 128.
type BarcodeArgs struct {
	Symbology Symbology
	Pos       sbpl.Point
	Data      string
	Pitch     int
	Height    int
	StartCode byte
}

// TTFArgs renders text through the font engine. MaxWidth zero disables
// truncation and alignment.
type TTFArgs struct {
	Pos      sbpl.Point
	Text     string
	Font     string
	Size     int
	Pitch    int
	MaxWidth int
	Align    sbpl.Align
}

// Parse decodes and validates a JSON descriptor. Malformed argument
// shapes are errors; unknown instruction keys are a deliberate no-op so
// old services can accept jobs written for newer ones.
func Parse(data []byte) (*Descriptor, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("descriptor is not a JSON list: %w", err)
	}

	desc := &Descriptor{}
	for i, entry := range entries {
		trimmed := firstByte(entry)
		switch trimmed {
		case '{':
			if i != 0 {
				return nil, fmt.Errorf("connection settings allowed only as the first entry, found at index %d", i)
			}
			conn, err := parseConnection(entry)
			if err != nil {
				return nil, err
			}
			desc.Connection = conn

		case '[':
			page, err := parsePage(entry)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", len(desc.Pages), err)
			}
			desc.Pages = append(desc.Pages, page)

		default:
			return nil, fmt.Errorf("descriptor entry %d is neither an object nor a list", i)
		}
	}

	if len(desc.Pages) == 0 {
		return nil, fmt.Errorf("descriptor contains no pages")
	}
	return desc, nil
}

func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}

func parseConnection(raw json.RawMessage) (*ConnectionSetting, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid connection settings: %w", err)
	}

	conn := &ConnectionSetting{Options: fields}
	if host, ok := fields["host"].(string); ok {
		conn.Host = host
	}
	if port, ok := fields["port"].(float64); ok {
		conn.Port = int(port)
	}
	if comm, ok := fields["communication"].(string); ok {
		conn.Communication = comm
	}
	return conn, nil
}

func parsePage(raw json.RawMessage) (Page, error) {
	var lines []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("page is not a list of instruction objects: %w", err)
	}

	page := make(Page, 0, len(lines))
	for i, line := range lines {
		inst, err := parseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		if inst != nil {
			page = append(page, *inst)
		}
	}
	return page, nil
}

// parseInstruction resolves one instruction object. Returns nil for
// lines holding only unknown keys.
func parseInstruction(line map[string]json.RawMessage) (*Instruction, error) {
	if raw, ok := line["comment"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("comment: %w", err)
		}
		return &Instruction{Comment: text}, nil
	}

	if raw, ok := line["set_label_size"]; ok {
		size, err := parsePair(raw, "set_label_size")
		if err != nil {
			return nil, err
		}
		return &Instruction{SetLabelSize: &SizeArgs{W: size[0], H: size[1]}}, nil
	}

	if raw, ok := line["line"]; ok {
		length, err := parsePair(raw, "line")
		if err != nil {
			return nil, err
		}
		pos, err := requirePos(line)
		if err != nil {
			return nil, err
		}
		thickness, _, err := parseThickness(line)
		if err != nil {
			return nil, err
		}
		return &Instruction{Line: &LineArgs{
			Pos:       pos,
			Length:    sbpl.Delta{X: length[0], Y: length[1]},
			Thickness: thickness,
		}}, nil
	}

	if raw, ok := line["rectangle"]; ok {
		size, err := parsePair(raw, "rectangle")
		if err != nil {
			return nil, err
		}
		pos, err := requirePos(line)
		if err != nil {
			return nil, err
		}
		hThickness, vThickness, err := parseThickness(line)
		if err != nil {
			return nil, err
		}
		return &Instruction{Rectangle: &RectangleArgs{
			Pos:        pos,
			Size:       sbpl.Delta{X: size[0], Y: size[1]},
			HThickness: hThickness,
			VThickness: vThickness,
		}}, nil
	}

	if raw, ok := line["write_text"]; ok {
		args, err := parseTextArgs(line, raw, "write_text")
		if err != nil {
			return nil, err
		}
		return &Instruction{WriteText: args}, nil
	}

	if raw, ok := line["bold_text"]; ok {
		args, err := parseTextArgs(line, raw, "bold_text")
		if err != nil {
			return nil, err
		}
		return &Instruction{BoldText: args}, nil
	}

	if raw, ok := line["barcode_ratio"]; ok {
		var ratio string
		if err := json.Unmarshal(raw, &ratio); err != nil {
			return nil, fmt.Errorf("barcode_ratio: %w", err)
		}
		return &Instruction{BarcodeRatio: ratio}, nil
	}

	for _, sym := range []Symbology{SymCodabar, SymCode39, SymCode93, SymCode128, SymJAN13, SymJAN8, SymITF} {
		raw, ok := line[string(sym)]
		if !ok {
			continue
		}
		args, err := parseBarcodeArgs(sym, raw)
		if err != nil {
			return nil, err
		}
		pos, err := requirePos(line)
		if err != nil {
			return nil, err
		}
		args.Pos = pos
		return &Instruction{Barcode: args}, nil
	}

	if raw, ok := line["ttf_write"]; ok {
		args, err := parseTTFArgs(line, raw)
		if err != nil {
			return nil, err
		}
		return &Instruction{TTFWrite: args}, nil
	}

	if _, ok := line["shift_jis"]; ok {
		return &Instruction{ShiftJIS: true}, nil
	}

	if _, ok := line["skip_cutting"]; ok {
		return &Instruction{SkipCutting: true}, nil
	}

	if raw, ok := line["print"]; ok {
		var copies int
		if err := json.Unmarshal(raw, &copies); err != nil {
			return nil, fmt.Errorf("print: %w", err)
		}
		return &Instruction{Print: copies}, nil
	}

	for key, angle := range map[string]sbpl.Rotation{
		"rotate_0":   sbpl.Rotate0,
		"rotate_90":  sbpl.Rotate90,
		"rotate_180": sbpl.Rotate180,
		"rotate_270": sbpl.Rotate270,
	} {
		if _, ok := line[key]; ok {
			a := angle
			return &Instruction{Rotate: &a}, nil
		}
	}

	// Only unknown keys: forward-compatible no-op.
	return nil, nil
}

func parsePair(raw json.RawMessage, field string) ([2]int, error) {
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return [2]int{}, fmt.Errorf("%s: want [int, int]: %w", field, err)
	}
	if len(values) != 2 {
		return [2]int{}, fmt.Errorf("%s: want exactly 2 integers, got %d", field, len(values))
	}
	return [2]int{values[0], values[1]}, nil
}

func requirePos(line map[string]json.RawMessage) (sbpl.Point, error) {
	raw, ok := line["pos"]
	if !ok {
		return sbpl.Point{}, fmt.Errorf("missing pos")
	}
	pair, err := parsePair(raw, "pos")
	if err != nil {
		return sbpl.Point{}, err
	}
	return sbpl.Point{X: pair[0], Y: pair[1]}, nil
}

// parseThickness accepts either a single integer or an [h, v] pair.
func parseThickness(line map[string]json.RawMessage) (int, int, error) {
	raw, ok := line["thickness"]
	if !ok {
		return 0, 0, fmt.Errorf("missing thickness")
	}

	var single int
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, single, nil
	}

	pair, err := parsePair(raw, "thickness")
	if err != nil {
		return 0, 0, err
	}
	return pair[0], pair[1], nil
}

func parseTextArgs(line map[string]json.RawMessage, raw json.RawMessage, field string) (*TextArgs, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}

	pos, err := requirePos(line)
	if err != nil {
		return nil, err
	}

	expRaw, ok := line["expansion"]
	if !ok {
		return nil, fmt.Errorf("%s: missing expansion", field)
	}
	exp, err := parsePair(expRaw, "expansion")
	if err != nil {
		return nil, err
	}

	pitch := 0
	if raw, ok := line["pitch"]; ok {
		if err := json.Unmarshal(raw, &pitch); err != nil {
			return nil, fmt.Errorf("pitch: %w", err)
		}
	}

	return &TextArgs{
		Pos:     pos,
		HExpand: exp[0],
		VExpand: exp[1],
		Pitch:   pitch,
		Text:    text,
	}, nil
}

// parseBarcodeArgs decodes the positional [data, pitch, height] tuple,
// with an optional fourth start-code element for Code 128.
func parseBarcodeArgs(sym Symbology, raw json.RawMessage) (*BarcodeArgs, error) {
	var tuple []interface{}
	if err := json.Unmarshal(raw, &tuple); err != nil {
		return nil, fmt.Errorf("%s: want [data, pitch, height]: %w", sym, err)
	}
	if len(tuple) < 3 {
		return nil, fmt.Errorf("%s: want [data, pitch, height], got %d elements", sym, len(tuple))
	}

	data, ok := tuple[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s: data must be a string", sym)
	}
	pitch, ok := tuple[1].(float64)
	if !ok {
		return nil, fmt.Errorf("%s: pitch must be a number", sym)
	}
	height, ok := tuple[2].(float64)
	if !ok {
		return nil, fmt.Errorf("%s: height must be a number", sym)
	}

	args := &BarcodeArgs{
		Symbology: sym,
		Data:      data,
		Pitch:     int(pitch),
		Height:    int(height),
	}

	if len(tuple) > 3 {
		if sym != SymCode128 {
			return nil, fmt.Errorf("%s: start code only valid for code_128", sym)
		}
		start, ok := tuple[3].(string)
		if !ok || len(start) != 1 {
			return nil, fmt.Errorf("code_128: start code must be \"A\", \"B\" or \"C\"")
		}
		args.StartCode = start[0]
	}

	return args, nil
}

func parseTTFArgs(line map[string]json.RawMessage, raw json.RawMessage) (*TTFArgs, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("ttf_write: %w", err)
	}

	pos, err := requirePos(line)
	if err != nil {
		return nil, err
	}

	fontRaw, ok := line["font"]
	if !ok {
		return nil, fmt.Errorf("ttf_write: missing font")
	}
	var fontName string
	if err := json.Unmarshal(fontRaw, &fontName); err != nil {
		return nil, fmt.Errorf("font: %w", err)
	}

	expRaw, ok := line["expansion"]
	if !ok {
		return nil, fmt.Errorf("ttf_write: missing expansion")
	}
	// The font expansion is a one-element list carrying the character
	// size in device units.
	var exp []int
	if err := json.Unmarshal(expRaw, &exp); err != nil || len(exp) == 0 {
		return nil, fmt.Errorf("ttf_write: expansion must be a non-empty int list")
	}

	args := &TTFArgs{
		Pos:   pos,
		Text:  text,
		Font:  fontName,
		Size:  exp[0],
		Align: sbpl.AlignLeft,
	}

	if raw, ok := line["pitch"]; ok {
		if err := json.Unmarshal(raw, &args.Pitch); err != nil {
			return nil, fmt.Errorf("pitch: %w", err)
		}
	}
	if raw, ok := line["width"]; ok {
		if err := json.Unmarshal(raw, &args.MaxWidth); err != nil {
			return nil, fmt.Errorf("width: %w", err)
		}
	}
	if raw, ok := line["align"]; ok {
		var align string
		if err := json.Unmarshal(raw, &align); err != nil {
			return nil, fmt.Errorf("align: %w", err)
		}
		switch align {
		case "center":
			args.Align = sbpl.AlignCenter
		case "right":
			args.Align = sbpl.AlignRight
		case "left", "":
			args.Align = sbpl.AlignLeft
		default:
			return nil, fmt.Errorf("align: unknown value %q", align)
		}
	}

	return args, nil
}
