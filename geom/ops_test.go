package geom

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLength(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{3, 4})
	if got := c.Length(); got != 5 {
		t.Errorf("expected length 5, got %v", got)
	}
	c = line([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 5})
	if got := c.Length(); got != 15 {
		t.Errorf("expected length 15, got %v", got)
	}
	if got := NewCurve().Length(); got != 0 {
		t.Errorf("expected length 0, got %v", got)
	}
}

func TestValue(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10})

	x, y, _ := c.Value(5)
	if x != 5 || y != 0 {
		t.Errorf("expected (5, 0), got (%v, %v)", x, y)
	}
	x, y, _ = c.Value(15)
	if x != 10 || y != 5 {
		t.Errorf("expected (10, 5), got (%v, %v)", x, y)
	}
	// Clamped on both ends.
	x, y, _ = c.Value(-3)
	if x != 0 || y != 0 {
		t.Errorf("expected (0, 0), got (%v, %v)", x, y)
	}
	x, y, _ = c.Value(100)
	if x != 10 || y != 10 {
		t.Errorf("expected (10, 10), got (%v, %v)", x, y)
	}
}

func TestValueInterpolatesZ(t *testing.T) {
	c := NewCurve()
	if err := c.AddPointZ(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.AddPointZ(10, 0, 100); err != nil {
		t.Fatal(err)
	}
	_, _, z := c.Value(2.5)
	if z != 25 {
		t.Errorf("expected z=25, got %v", z)
	}
}

func TestValueSkipsZeroLengthSegments(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{5, 0}, [2]float64{5, 0}, [2]float64{10, 0})
	x, y, _ := c.Value(7)
	if x != 7 || y != 0 {
		t.Errorf("expected (7, 0), got (%v, %v)", x, y)
	}
}

func TestSubLine(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10})

	sub, err := c.SubLine(2, 12, false)
	if err != nil {
		t.Fatal(err)
	}
	if x, y := sub.StartPoint(); x != 2 || y != 0 {
		t.Errorf("expected start (2, 0), got (%v, %v)", x, y)
	}
	if x, y := sub.EndPoint(); x != 10 || y != 2 {
		t.Errorf("expected end (10, 2), got (%v, %v)", x, y)
	}
	if !almostEqual(sub.Length(), 10) {
		t.Errorf("expected length 10, got %v", sub.Length())
	}
}

func TestSubLineSameSegment(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{10, 0})
	sub, err := c.SubLine(2, 5, false)
	if err != nil {
		t.Fatal(err)
	}
	if sub.NumPoints() != 2 {
		t.Fatalf("expected 2 points, got %d", sub.NumPoints())
	}
	if x, _ := sub.Point(0); x != 2 {
		t.Errorf("expected x=2, got %v", x)
	}
	if x, _ := sub.Point(1); x != 5 {
		t.Errorf("expected x=5, got %v", x)
	}
}

func TestSubLineAsRatio(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{10, 0})
	sub, err := c.SubLine(0.2, 0.5, true)
	if err != nil {
		t.Fatal(err)
	}
	if x, _ := sub.StartPoint(); x != 2 {
		t.Errorf("expected x=2, got %v", x)
	}
	if x, _ := sub.EndPoint(); x != 5 {
		t.Errorf("expected x=5, got %v", x)
	}
}

func TestSubLineFromZero(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{10, 0})
	sub, err := c.SubLine(0, 5, false)
	if err != nil {
		t.Fatal(err)
	}
	if x, y := sub.StartPoint(); x != 0 || y != 0 {
		t.Errorf("expected start (0, 0), got (%v, %v)", x, y)
	}
	if x, _ := sub.EndPoint(); x != 5 {
		t.Errorf("expected end x=5, got %v", x)
	}
	if !almostEqual(sub.Length(), 5) {
		t.Errorf("expected length 5, got %v", sub.Length())
	}
}

func TestSubLineInvalid(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{10, 0})
	if _, err := c.SubLine(5, 2, false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("from > to: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := c.SubLine(10, 12, false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("from at end: expected ErrInvalidArgument, got %v", err)
	}
}

func TestSubLineKeepsZ(t *testing.T) {
	c := NewCurve()
	if err := c.AddPointZ(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.AddPointZ(10, 0, 100); err != nil {
		t.Fatal(err)
	}
	sub, err := c.SubLine(2, 6, false)
	if err != nil {
		t.Fatal(err)
	}
	if !sub.Is3D() {
		t.Fatal("expected 3D subline")
	}
	if sub.Z(0) != 20 || sub.Z(1) != 60 {
		t.Errorf("expected z 20 and 60, got %v and %v", sub.Z(0), sub.Z(1))
	}
}

func TestLinearArea(t *testing.T) {
	square := line([2]float64{0, 0}, [2]float64{4, 0}, [2]float64{4, 4},
		[2]float64{0, 4}, [2]float64{0, 0})
	if got := square.LinearArea(); got != 16 {
		t.Errorf("expected area 16, got %v", got)
	}

	open := line([2]float64{0, 0}, [2]float64{4, 0}, [2]float64{4, 4})
	if got := open.LinearArea(); got != 0 {
		t.Errorf("open linestring: expected area 0, got %v", got)
	}

	// A ring is assumed closed even without the repeated last vertex.
	ring := NewRing()
	for _, p := range [][2]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}} {
		if err := ring.AddPoint(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
	}
	if got := ring.LinearArea(); got != 16 {
		t.Errorf("ring: expected area 16, got %v", got)
	}
}

func TestIsClockwise(t *testing.T) {
	ccw := line([2]float64{0, 0}, [2]float64{4, 0}, [2]float64{4, 4},
		[2]float64{0, 4}, [2]float64{0, 0})
	if ccw.IsClockwise() {
		t.Error("counter-clockwise square reported clockwise")
	}

	cw := line([2]float64{0, 0}, [2]float64{0, 4}, [2]float64{4, 4},
		[2]float64{4, 0}, [2]float64{0, 0})
	if !cw.IsClockwise() {
		t.Error("clockwise square reported counter-clockwise")
	}
}

func TestIsClockwiseDegeneratePivot(t *testing.T) {
	// The lowest-rightmost vertex is duplicated, forcing the shoelace
	// fallback.
	c := line([2]float64{0, 0}, [2]float64{4, 0}, [2]float64{4, 0},
		[2]float64{4, 4}, [2]float64{0, 4}, [2]float64{0, 0})
	if c.IsClockwise() {
		t.Error("expected counter-clockwise via fallback")
	}
	c.ReversePoints()
	if !c.IsClockwise() {
		t.Error("expected clockwise via fallback")
	}
}

func TestSegmentize(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{10, 0})
	if err := c.Segmentize(2.5); err != nil {
		t.Fatal(err)
	}
	if c.NumPoints() != 5 {
		t.Fatalf("expected 5 points, got %d", c.NumPoints())
	}
	for i, want := range []float64{0, 2.5, 5, 7.5, 10} {
		if x, y := c.Point(i); !almostEqual(x, want) || y != 0 {
			t.Errorf("point %d: expected (%v, 0), got (%v, %v)", i, want, x, y)
		}
	}
}

func TestSegmentizeDirectionStable(t *testing.T) {
	fwd := line([2]float64{0, 0}, [2]float64{10, 0})
	rev := line([2]float64{10, 0}, [2]float64{0, 0})
	if err := fwd.Segmentize(3); err != nil {
		t.Fatal(err)
	}
	if err := rev.Segmentize(3); err != nil {
		t.Fatal(err)
	}
	if fwd.NumPoints() != rev.NumPoints() {
		t.Fatalf("point counts differ: %d vs %d", fwd.NumPoints(), rev.NumPoints())
	}
	n := fwd.NumPoints()
	for i := 0; i < n; i++ {
		fx, fy := fwd.Point(i)
		rx, ry := rev.Point(n - 1 - i)
		if fx != rx || fy != ry {
			t.Errorf("vertex %d: (%v, %v) vs (%v, %v)", i, fx, fy, rx, ry)
		}
	}
}

func TestSegmentizeShortSegmentsUntouched(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})
	if err := c.Segmentize(5); err != nil {
		t.Fatal(err)
	}
	if c.NumPoints() != 3 {
		t.Errorf("expected 3 points, got %d", c.NumPoints())
	}
}

func TestSegmentizeCopiesZ(t *testing.T) {
	c := NewCurve()
	if err := c.AddPointZ(10, 0, 7); err != nil {
		t.Fatal(err)
	}
	if err := c.AddPointZ(0, 0, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.Segmentize(5); err != nil {
		t.Fatal(err)
	}
	if c.NumPoints() != 3 {
		t.Fatalf("expected 3 points, got %d", c.NumPoints())
	}
	// Intermediate vertices inherit the segment start Z unchanged.
	if c.Z(1) != 7 {
		t.Errorf("expected intermediate z=7, got %v", c.Z(1))
	}
}

func TestSegmentizeInvalidLength(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{1, 0})
	if err := c.Segmentize(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestProjectUnsupported(t *testing.T) {
	c := line([2]float64{0, 0}, [2]float64{1, 0})
	if _, err := c.Project(0.5, 0.5); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
