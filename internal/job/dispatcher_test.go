// internal/job/dispatcher_test.go
package job

import (
	"bytes"
	"testing"

	"label-service/internal/sbpl"
)

func TestEncodeTicketMatchesDirectCalls(t *testing.T) {
	data := []byte(`[
		{"host": "192.168.0.251", "port": 1024, "communication": "SG412R_Status5"},
		[
			{"set_label_size": [1000, 3000]},
			{"rotate_270": 0},
			{"pos": [260, 930], "codabar": ["0004693003005000", 3, 100]},
			{"pos": [160, 1000], "expansion": [1, 1], "bold_text": "0004693003005000"},
			{"print": 1}
		]
	]`)

	desc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	got := sbpl.NewGenerator(nil)
	if err := Encode(desc, got); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	// The same label built by hand against the encoder.
	want := sbpl.NewGenerator(nil)
	err = want.Packet(func(g *sbpl.Generator) error {
		return g.Page(func(g *sbpl.Generator) error {
			if err := g.SetLabelSize(1000, 3000); err != nil {
				return err
			}
			if err := g.Rotate(sbpl.Rotate270); err != nil {
				return err
			}
			if err := g.Position(sbpl.Point{X: 260, Y: 930}); err != nil {
				return err
			}
			if err := g.Codabar("0004693003005000", 3, 100); err != nil {
				return err
			}
			if err := g.Position(sbpl.Point{X: 160, Y: 1000}); err != nil {
				return err
			}
			if err := g.Expansion(1, 1, 0); err != nil {
				return err
			}
			if err := g.BoldText("0004693003005000"); err != nil {
				return err
			}
			return g.Print(1)
		})
	})
	if err != nil {
		t.Fatalf("building reference stream: %v", err)
	}

	if !bytes.Equal(got.ToBytes(), want.ToBytes()) {
		t.Errorf("Encode() stream = % x\nwant % x", got.ToBytes(), want.ToBytes())
	}
}

func TestEncodeFramingPerPage(t *testing.T) {
	data := []byte(`[
		[{"print": 1}],
		[{"print": 2}]
	]`)

	desc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	g := sbpl.NewGenerator(nil)
	if err := Encode(desc, g); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	stream := g.ToBytes()
	if n := bytes.Count(stream, []byte{0x02}); n != 2 {
		t.Errorf("stream has %d STX markers, want 2", n)
	}
	if n := bytes.Count(stream, []byte{0x03}); n != 2 {
		t.Errorf("stream has %d ETX markers, want 2", n)
	}

	want := []byte{
		0x02, 0x1B, 'A', 0x1B, 'Q', '1', 0x1B, 'Z', 0x03,
		0x02, 0x1B, 'A', 0x1B, 'Q', '2', 0x1B, 'Z', 0x03,
	}
	if !bytes.Equal(stream, want) {
		t.Errorf("stream = % x, want % x", stream, want)
	}
}

func TestEncodeCommentIsSilent(t *testing.T) {
	data := []byte(`[[
		{"comment": "==ticket main=="},
		{"print": 1}
	]]`)

	desc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	g := sbpl.NewGenerator(nil)
	if err := Encode(desc, g); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if bytes.Contains(g.ToBytes(), []byte("ticket")) {
		t.Error("comment text leaked into the stream")
	}
}

func TestEncodeValidationAbortsWithFraming(t *testing.T) {
	data := []byte(`[[
		{"pos": [100, 200], "jan_13": ["123", 3, 100]}
	]]`)

	desc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	g := sbpl.NewGenerator(nil)
	if err := Encode(desc, g); err == nil {
		t.Fatal("Encode() accepted an undersized JAN-13 payload")
	}

	// Scoped framing closes the page and packet even on failure.
	stream := g.ToBytes()
	if len(stream) == 0 || stream[len(stream)-1] != 0x03 {
		t.Errorf("stream not closed after error: % x", stream)
	}
}
