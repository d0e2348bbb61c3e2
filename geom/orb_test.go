package geom

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func TestToOrb(t *testing.T) {
	c := line([2]float64{1, 2}, [2]float64{3, 4})
	g := c.ToOrb()
	ls, ok := g.(orb.LineString)
	if !ok {
		t.Fatalf("expected orb.LineString, got %T", g)
	}
	if len(ls) != 2 || ls[1] != (orb.Point{3, 4}) {
		t.Errorf("unexpected line string %v", ls)
	}

	ring := NewRing()
	for _, p := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {0, 0}} {
		if err := ring.AddPoint(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := ring.ToOrb().(orb.Ring); !ok {
		t.Errorf("expected orb.Ring, got %T", ring.ToOrb())
	}
}

func TestFromOrb(t *testing.T) {
	c, err := FromOrb(orb.LineString{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatal(err)
	}
	if c.NumPoints() != 2 || c.Kind() != LineString {
		t.Errorf("unexpected curve: %d points, kind %v", c.NumPoints(), c.Kind())
	}

	r, err := FromOrb(orb.Ring{{0, 0}, {1, 0}, {0, 1}, {0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind() != LinearRing {
		t.Errorf("expected LinearRing, got %v", r.Kind())
	}

	if _, err := FromOrb(orb.Point{1, 2}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestEnvelopeBoundRoundTrip(t *testing.T) {
	env := Envelope{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}
	if got := EnvelopeFromBound(env.Bound()); got != env {
		t.Errorf("expected %+v, got %+v", env, got)
	}
}
