package geom

// Curve is a simple curve: an ordered sequence of vertices with optional Z
// and M planes. The zero value is an empty 2D LineString.
//
// Accessors come in two tiers. Point, X and Y are trusted-caller fast paths:
// an out-of-range index panics (a contract violation, not a recoverable
// error). Z and M are the checked variants and return 0.0 when the index is
// out of range or the plane is absent. Callers iterating after validating
// NumPoints use the unchecked tier.
type Curve struct {
	buf  coordBuf
	kind Kind
	srid int
}

// NewCurve returns an empty 2D LineString.
func NewCurve() *Curve {
	return &Curve{}
}

// NewRing returns an empty 2D LinearRing.
func NewRing() *Curve {
	return &Curve{kind: LinearRing}
}

// Kind returns the curve subtype.
func (c *Curve) Kind() Kind { return c.kind }

// SRID returns the spatial reference id associated with the curve, 0 if none.
func (c *Curve) SRID() int { return c.srid }

// SetSRID associates a spatial reference id with the curve.
func (c *Curve) SetSRID(srid int) { c.srid = srid }

// NumPoints returns the vertex count.
func (c *Curve) NumPoints() int { return c.buf.n }

// IsEmpty reports whether the curve has no vertices.
func (c *Curve) IsEmpty() bool { return c.buf.n == 0 }

// Is3D reports whether the Z plane is active.
func (c *Curve) Is3D() bool { return c.buf.hasZ }

// IsMeasured reports whether the M plane is active.
func (c *Curve) IsMeasured() bool { return c.buf.hasM }

// Dimension returns the coordinate dimensionality of the curve.
func (c *Curve) Dimension() Dimension {
	switch {
	case c.buf.hasZ && c.buf.hasM:
		return DimXYZM
	case c.buf.hasZ:
		return DimXYZ
	case c.buf.hasM:
		return DimXYM
	default:
		return DimXY
	}
}

// Empty removes all vertices and drops the Z and M planes.
func (c *Curve) Empty() {
	c.buf.disableZ()
	c.buf.disableM()
	_ = c.buf.setNumPoints(0, false)
}

// Set3D enables or disables the Z plane. Idempotent.
func (c *Curve) Set3D(on bool) error {
	if on {
		return c.buf.enableZ()
	}
	c.buf.disableZ()
	return nil
}

// SetMeasured enables or disables the M plane. Idempotent.
func (c *Curve) SetMeasured(on bool) error {
	if on {
		return c.buf.enableM()
	}
	c.buf.disableM()
	return nil
}

// SetNumPoints presets the vertex count, zero-filling any newly exposed
// vertices. Use it before SetPoint to avoid regrowing on every append.
func (c *Curve) SetNumPoints(n int) error {
	return c.buf.setNumPoints(n, true)
}

// Point returns the X and Y of vertex i. Trusted-caller fast path: i must be
// in [0, NumPoints).
func (c *Curve) Point(i int) (x, y float64) {
	return c.buf.xy[2*i], c.buf.xy[2*i+1]
}

// X returns the X of vertex i. Trusted-caller fast path.
func (c *Curve) X(i int) float64 { return c.buf.xy[2*i] }

// Y returns the Y of vertex i. Trusted-caller fast path.
func (c *Curve) Y(i int) float64 { return c.buf.xy[2*i+1] }

// Z returns the Z of vertex i, or 0.0 when i is out of range or the curve
// has no Z plane.
func (c *Curve) Z(i int) float64 {
	if c.buf.hasZ && i >= 0 && i < c.buf.n {
		return c.buf.z[i]
	}
	return 0.0
}

// M returns the M of vertex i, or 0.0 when i is out of range or the curve
// has no M plane.
func (c *Curve) M(i int) float64 {
	if c.buf.hasM && i >= 0 && i < c.buf.n {
		return c.buf.m[i]
	}
	return 0.0
}

// grow extends the curve so vertex i exists. Auto-extension is documented
// behavior of SetPoint, not an error.
func (c *Curve) grow(i int) error {
	if i < 0 {
		return ErrInvalidArgument
	}
	if i >= c.buf.n {
		if i == MaxPoints {
			return ErrTooManyPoints
		}
		return c.buf.setNumPoints(i+1, true)
	}
	return nil
}

// SetPoint assigns vertex i, growing the curve if i is past the end.
func (c *Curve) SetPoint(i int, x, y float64) error {
	if err := c.grow(i); err != nil {
		return err
	}
	c.buf.xy[2*i] = x
	c.buf.xy[2*i+1] = y
	return nil
}

// SetPointZ assigns vertex i with a Z value, enabling the Z plane if needed.
func (c *Curve) SetPointZ(i int, x, y, z float64) error {
	if err := c.buf.enableZ(); err != nil {
		return err
	}
	if err := c.SetPoint(i, x, y); err != nil {
		return err
	}
	c.buf.z[i] = z
	return nil
}

// SetPointM assigns vertex i with an M value, enabling the M plane if needed.
func (c *Curve) SetPointM(i int, x, y, m float64) error {
	if err := c.buf.enableM(); err != nil {
		return err
	}
	if err := c.SetPoint(i, x, y); err != nil {
		return err
	}
	c.buf.m[i] = m
	return nil
}

// SetPointZM assigns vertex i with Z and M values, enabling both planes if
// needed.
func (c *Curve) SetPointZM(i int, x, y, z, m float64) error {
	if err := c.buf.enableZ(); err != nil {
		return err
	}
	if err := c.buf.enableM(); err != nil {
		return err
	}
	if err := c.SetPoint(i, x, y); err != nil {
		return err
	}
	c.buf.z[i] = z
	c.buf.m[i] = m
	return nil
}

// SetZ assigns the Z of vertex i, enabling the Z plane if needed.
func (c *Curve) SetZ(i int, z float64) error {
	if err := c.buf.enableZ(); err != nil {
		return err
	}
	if err := c.grow(i); err != nil {
		return err
	}
	c.buf.z[i] = z
	return nil
}

// SetM assigns the M of vertex i, enabling the M plane if needed.
func (c *Curve) SetM(i int, m float64) error {
	if err := c.buf.enableM(); err != nil {
		return err
	}
	if err := c.grow(i); err != nil {
		return err
	}
	c.buf.m[i] = m
	return nil
}

// AddPoint appends a vertex.
func (c *Curve) AddPoint(x, y float64) error {
	return c.SetPoint(c.buf.n, x, y)
}

// AddPointZ appends a vertex with a Z value.
func (c *Curve) AddPointZ(x, y, z float64) error {
	return c.SetPointZ(c.buf.n, x, y, z)
}

// AddPointM appends a vertex with an M value.
func (c *Curve) AddPointM(x, y, m float64) error {
	return c.SetPointM(c.buf.n, x, y, m)
}

// AddPointZM appends a vertex with Z and M values.
func (c *Curve) AddPointZM(x, y, z, m float64) error {
	return c.SetPointZM(c.buf.n, x, y, z, m)
}

// RemovePoint deletes vertex i, shifting later vertices down.
func (c *Curve) RemovePoint(i int) error {
	return c.buf.removeAt(i)
}

// ReversePoints reverses vertex order in place across all active planes.
func (c *Curve) ReversePoints() {
	c.buf.reverse()
}

// SwapXY exchanges the X and Y of every vertex.
func (c *Curve) SwapXY() {
	for i := 0; i < c.buf.n; i++ {
		c.buf.xy[2*i], c.buf.xy[2*i+1] = c.buf.xy[2*i+1], c.buf.xy[2*i]
	}
}

// StartPoint returns the first vertex. The curve must not be empty.
func (c *Curve) StartPoint() (x, y float64) { return c.Point(0) }

// EndPoint returns the last vertex. The curve must not be empty.
func (c *Curve) EndPoint() (x, y float64) { return c.Point(c.buf.n - 1) }

// IsClosed reports whether the first and last vertices coincide in XY.
func (c *Curve) IsClosed() bool {
	n := c.buf.n
	if n < 2 {
		return false
	}
	return c.buf.xy[0] == c.buf.xy[2*(n-1)] && c.buf.xy[1] == c.buf.xy[2*(n-1)+1]
}

// Clone returns a deep copy of the curve.
func (c *Curve) Clone() *Curve {
	return &Curve{buf: c.buf.clone(), kind: c.kind, srid: c.srid}
}

// Take moves the vertex storage out of src into c, leaving src empty. The
// dimensionality flags and spatial reference of src are carried over; the
// kind of c is preserved.
func (c *Curve) Take(src *Curve) {
	c.buf = src.buf
	c.srid = src.srid
	src.buf = coordBuf{}
}

// CastToRing consumes ls and returns it as a LinearRing. The curve must have
// at least 2 points and be closed; ls is emptied either way.
func CastToRing(ls *Curve) (*Curve, error) {
	if ls.NumPoints() < 2 || !ls.IsClosed() {
		ls.Empty()
		return nil, ErrNotClosed
	}
	ring := NewRing()
	ring.Take(ls)
	return ring, nil
}

// CastToLineString consumes a ring and returns it as a LineString.
func CastToLineString(ring *Curve) *Curve {
	ls := NewCurve()
	ls.Take(ring)
	return ls
}

// Envelope returns the 2D bounding box. An empty curve yields a zero box.
func (c *Curve) Envelope() Envelope {
	if c.buf.n == 0 {
		return Envelope{}
	}
	env := EmptyEnvelope()
	for i := 0; i < c.buf.n; i++ {
		env.MergeXY(c.buf.xy[2*i], c.buf.xy[2*i+1])
	}
	return env
}

// Equal reports whether two curves have the same vertex count and identical
// XY coordinates. Z and M planes are not compared.
func (c *Curve) Equal(other *Curve) bool {
	if c.buf.n != other.buf.n {
		return false
	}
	for i := 0; i < 2*c.buf.n; i++ {
		if c.buf.xy[i] != other.buf.xy[i] {
			return false
		}
	}
	return true
}

// AddSubLineString appends the vertex range [start, end] of other to c,
// walking backwards when end < start. end == -1 means the last vertex.
func (c *Curve) AddSubLineString(other *Curve, start, end int) error {
	n := other.NumPoints()
	if n == 0 {
		return nil
	}
	if start < 0 || start >= n || end < -1 || end >= n {
		return ErrInvalidArgument
	}
	if end == -1 {
		end = n - 1
	}
	step := 1
	if end < start {
		step = -1
	}
	for i := start; ; i += step {
		x, y := other.Point(i)
		var err error
		switch {
		case other.Is3D() && other.IsMeasured():
			err = c.AddPointZM(x, y, other.Z(i), other.M(i))
		case other.Is3D():
			err = c.AddPointZ(x, y, other.Z(i))
		case other.IsMeasured():
			err = c.AddPointM(x, y, other.M(i))
		default:
			err = c.AddPoint(x, y)
		}
		if err != nil {
			return err
		}
		if i == end {
			break
		}
	}
	return nil
}
