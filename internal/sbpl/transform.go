// internal/sbpl/transform.go
package sbpl

// Point is a device coordinate. The origin is the top-left corner of the
// label as seen from behind the printer; x grows rightward, y downward.
type Point struct {
	X int
	Y int
}

// Delta is a logical offset applied to a Point through Offset.
type Delta struct {
	X int
	Y int
}

// Rotation is the coordinate-axis rotation selected with ESC %.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Valid reports whether r is one of the four rotations the printer accepts.
func (r Rotation) Valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// Offset maps the logical offset d to device coordinates under the given
// rotation. Glyph placement and cursor advance stay rotation-agnostic by
// routing every shift through this function; rotation state itself lives in
// the Generator.
func Offset(p Point, d Delta, r Rotation) Point {
	switch r {
	case Rotate90:
		return Point{X: p.X - d.Y, Y: p.Y - d.X}
	case Rotate180:
		return Point{X: p.X - d.X, Y: p.Y + d.Y}
	case Rotate270:
		return Point{X: p.X + d.Y, Y: p.Y + d.X}
	default:
		return Point{X: p.X + d.X, Y: p.Y - d.Y}
	}
}
