package geom

import "github.com/paulmach/orb"

// ToOrb converts the curve to an orb geometry, dropping any Z or M values
// since orb is strictly 2D. A LinearRing maps to orb.Ring, everything else to
// orb.LineString.
func (c *Curve) ToOrb() orb.Geometry {
	pts := make([]orb.Point, c.buf.n)
	for i := 0; i < c.buf.n; i++ {
		pts[i] = orb.Point{c.buf.xy[2*i], c.buf.xy[2*i+1]}
	}
	if c.kind == LinearRing {
		return orb.Ring(pts)
	}
	return orb.LineString(pts)
}

// FromOrb builds a curve from an orb.LineString or orb.Ring. Other orb
// geometry types yield ErrUnsupported.
func FromOrb(g orb.Geometry) (*Curve, error) {
	var pts []orb.Point
	c := NewCurve()
	switch v := g.(type) {
	case orb.LineString:
		pts = v
	case orb.Ring:
		pts = v
		c.kind = LinearRing
	default:
		return nil, ErrUnsupported
	}
	if err := c.SetNumPoints(len(pts)); err != nil {
		return nil, err
	}
	for i, p := range pts {
		c.buf.xy[2*i] = p[0]
		c.buf.xy[2*i+1] = p[1]
	}
	return c, nil
}

// Bound converts the envelope to an orb.Bound.
func (e Envelope) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.MinX, e.MinY},
		Max: orb.Point{e.MaxX, e.MaxY},
	}
}

// EnvelopeFromBound converts an orb.Bound to an Envelope.
func EnvelopeFromBound(b orb.Bound) Envelope {
	return Envelope{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}
