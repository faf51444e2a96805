// internal/sbpl/transform_test.go
package sbpl

import "testing"

func TestOffsetPerRotation(t *testing.T) {
	start := Point{X: 100, Y: 200}
	delta := Delta{X: 10, Y: 3}

	cases := []struct {
		rotation Rotation
		want     Point
	}{
		{Rotate0, Point{X: 110, Y: 197}},
		{Rotate90, Point{X: 97, Y: 190}},
		{Rotate180, Point{X: 90, Y: 203}},
		{Rotate270, Point{X: 103, Y: 210}},
	}

	for _, c := range cases {
		got := Offset(start, delta, c.rotation)
		if got != c.want {
			t.Errorf("Offset(%v, %v, %d) = %v, want %v", start, delta, c.rotation, got, c.want)
		}
	}
}

func TestOffsetOppositeRotationsInvert(t *testing.T) {
	start := Point{X: 500, Y: 500}
	delta := Delta{X: 7, Y: -13}

	at0 := Offset(start, delta, Rotate0)
	at180 := Offset(start, delta, Rotate180)
	if at0.X-start.X != -(at180.X-start.X) || at0.Y-start.Y != -(at180.Y-start.Y) {
		t.Errorf("0 and 180 degree shifts not sign-inverted: %v vs %v", at0, at180)
	}

	at90 := Offset(start, delta, Rotate90)
	at270 := Offset(start, delta, Rotate270)
	if at90.X-start.X != -(at270.X-start.X) || at90.Y-start.Y != -(at270.Y-start.Y) {
		t.Errorf("90 and 270 degree shifts not sign-inverted: %v vs %v", at90, at270)
	}
}

func TestRotationValid(t *testing.T) {
	for _, r := range []Rotation{Rotate0, Rotate90, Rotate180, Rotate270} {
		if !r.Valid() {
			t.Errorf("Rotation(%d).Valid() = false", r)
		}
	}
	for _, r := range []Rotation{-90, 45, 100, 360} {
		if r.Valid() {
			t.Errorf("Rotation(%d).Valid() = true", r)
		}
	}
}
