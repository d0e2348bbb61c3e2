package geom

import "math"

// Length returns the sum of Euclidean segment lengths. Planar by design:
// only the XY plane contributes, Z and M are ignored.
func (c *Curve) Length() float64 {
	var length float64
	for i := 0; i < c.buf.n-1; i++ {
		dx := c.buf.xy[2*i+2] - c.buf.xy[2*i]
		dy := c.buf.xy[2*i+3] - c.buf.xy[2*i+1]
		length += math.Sqrt(dx*dx + dy*dy)
	}
	return length
}

// Value returns the point at the given distance along the curve. Distances
// below zero yield the first vertex; distances past the total length yield
// the last vertex. Z is interpolated when the curve is 3D. Zero-length
// segments are never selected as the bracketing segment.
func (c *Curve) Value(distance float64) (x, y, z float64) {
	n := c.buf.n
	if n == 0 {
		return 0, 0, 0
	}
	if distance < 0 {
		return c.buf.xy[0], c.buf.xy[1], c.Z(0)
	}

	var length float64
	for i := 0; i < n-1; i++ {
		x0, y0 := c.buf.xy[2*i], c.buf.xy[2*i+1]
		x1, y1 := c.buf.xy[2*i+2], c.buf.xy[2*i+3]
		dx := x1 - x0
		dy := y1 - y0
		segLength := math.Sqrt(dx*dx + dy*dy)
		if segLength > 0 {
			if length <= distance && length+segLength >= distance {
				ratio := (distance - length) / segLength
				x = x0*(1-ratio) + x1*ratio
				y = y0*(1-ratio) + y1*ratio
				if c.buf.hasZ {
					z = c.buf.z[i]*(1-ratio) + c.buf.z[i+1]*ratio
				}
				return x, y, z
			}
			length += segLength
		}
	}
	return c.buf.xy[2*(n-1)], c.buf.xy[2*(n-1)+1], c.Z(n - 1)
}

// SubLine extracts the portion of the curve between two along-curve
// distances into a new curve. When asRatio is set the distances are ratios
// of the total length. from is clamped to 0 and to is clamped to the total
// length; from > to, or from at or past the total length, is an error. The
// result always has at least 2 points.
func (c *Curve) SubLine(from, to float64, asRatio bool) (*Curve, error) {
	out := NewCurve()
	out.srid = c.srid
	if c.buf.hasZ {
		if err := out.Set3D(true); err != nil {
			return nil, err
		}
	}

	total := c.Length()
	if asRatio {
		from *= total
		to *= total
	}
	if from < 0 {
		from = 0
	}
	if to > total {
		to = total
	}
	if from > to || from >= total {
		return nil, ErrInvalidArgument
	}

	addVertex := func(x, y, z float64) error {
		if c.buf.hasZ {
			return out.AddPointZ(x, y, z)
		}
		return out.AddPoint(x, y)
	}

	n := c.buf.n
	var length float64
	i := 0

	if from == 0 {
		if err := addVertex(c.buf.xy[0], c.buf.xy[1], c.Z(0)); err != nil {
			return nil, err
		}
	} else {
		for ; i < n-1; i++ {
			x0, y0 := c.buf.xy[2*i], c.buf.xy[2*i+1]
			x1, y1 := c.buf.xy[2*i+2], c.buf.xy[2*i+3]
			dx := x1 - x0
			dy := y1 - y0
			segLength := math.Sqrt(dx*dx + dy*dy)
			if segLength == 0 {
				continue
			}
			if length <= from && length+segLength >= from {
				ratio := (from - length) / segLength
				x := x0*(1-ratio) + x1*ratio
				y := y0*(1-ratio) + y1*ratio
				z := c.Z(i)*(1-ratio) + c.Z(i+1)*ratio
				if err := addVertex(x, y, z); err != nil {
					return nil, err
				}

				// The end cut may land in the same segment.
				if length <= to && length+segLength >= to {
					ratio = (to - length) / segLength
					x = x0*(1-ratio) + x1*ratio
					y = y0*(1-ratio) + y1*ratio
					z = c.Z(i)*(1-ratio) + c.Z(i+1)*ratio
					if err := addVertex(x, y, z); err != nil {
						return nil, err
					}
					if out.NumPoints() < 2 {
						return nil, ErrInvalidArgument
					}
					return out, nil
				}
				i++
				length += segLength
				break
			}
			length += segLength
		}
	}

	for ; i < n-1; i++ {
		if err := addVertex(c.buf.xy[2*i], c.buf.xy[2*i+1], c.Z(i)); err != nil {
			return nil, err
		}
		x0, y0 := c.buf.xy[2*i], c.buf.xy[2*i+1]
		x1, y1 := c.buf.xy[2*i+2], c.buf.xy[2*i+3]
		dx := x1 - x0
		dy := y1 - y0
		segLength := math.Sqrt(dx*dx + dy*dy)
		if segLength == 0 {
			continue
		}
		if length <= to && length+segLength >= to {
			ratio := (to - length) / segLength
			x := x0*(1-ratio) + x1*ratio
			y := y0*(1-ratio) + y1*ratio
			z := c.Z(i)*(1-ratio) + c.Z(i+1)*ratio
			if err := addVertex(x, y, z); err != nil {
				return nil, err
			}
			return out, nil
		}
		length += segLength
	}

	last := n - 1
	if err := addVertex(c.buf.xy[2*last], c.buf.xy[2*last+1], c.Z(last)); err != nil {
		return nil, err
	}
	if out.NumPoints() < 2 {
		return nil, ErrInvalidArgument
	}
	return out, nil
}

// LinearArea returns the absolute area enclosed by the curve, computed with
// the shoelace sum. Rings are assumed closed; an open LineString must
// actually be closed or the result is 0, as is any curve with fewer than 2
// points.
func (c *Curve) LinearArea() float64 {
	n := c.buf.n
	if n < 2 {
		return 0
	}
	if c.kind != LinearRing &&
		(c.buf.xy[0] != c.buf.xy[2*(n-1)] || c.buf.xy[1] != c.buf.xy[2*(n-1)+1]) {
		return 0
	}

	sum := c.buf.xy[0] * (c.buf.xy[3] - c.buf.xy[2*(n-1)+1])
	for i := 1; i < n-1; i++ {
		sum += c.buf.xy[2*i] * (c.buf.xy[2*i+3] - c.buf.xy[2*i-1])
	}
	sum += c.buf.xy[2*(n-1)] * (c.buf.xy[1] - c.buf.xy[2*(n-2)+1])

	return 0.5 * math.Abs(sum)
}

const orientationEpsilon = 1.0e-5

func epsilonEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// IsClockwise reports whether a closed curve winds clockwise. It classifies
// the turn at the lowest, then rightmost vertex with a 2D cross product,
// falling back to the sign of the shoelace sum when the pivot is degenerate
// (duplicate lowest-rightmost candidates, or a neighbor within epsilon of
// the pivot) since the cross product is unreliable for near-coincident
// points.
func (c *Curve) IsClockwise() bool {
	n := c.buf.n
	if n < 2 {
		return true
	}

	useFallback := false

	// Lowest rightmost vertex, ignoring the duplicated closing vertex.
	v := 0
	for i := 1; i < n-1; i++ {
		if c.buf.xy[2*i+1] < c.buf.xy[2*v+1] ||
			(c.buf.xy[2*i+1] == c.buf.xy[2*v+1] && c.buf.xy[2*i] > c.buf.xy[2*v]) {
			v = i
			useFallback = false
		} else if c.buf.xy[2*i+1] == c.buf.xy[2*v+1] && c.buf.xy[2*i] == c.buf.xy[2*v] {
			// Two vertices share the lowest rightmost position; the pivot
			// test cannot be trusted.
			useFallback = true
		}
	}

	prev := v - 1
	if prev < 0 {
		prev = n - 2
	}
	if epsilonEqual(c.buf.xy[2*prev], c.buf.xy[2*v], orientationEpsilon) &&
		epsilonEqual(c.buf.xy[2*prev+1], c.buf.xy[2*v+1], orientationEpsilon) {
		useFallback = true
	}
	dx0 := c.buf.xy[2*prev] - c.buf.xy[2*v]
	dy0 := c.buf.xy[2*prev+1] - c.buf.xy[2*v+1]

	next := v + 1
	if next >= n-1 {
		next = 0
	}
	if epsilonEqual(c.buf.xy[2*next], c.buf.xy[2*v], orientationEpsilon) &&
		epsilonEqual(c.buf.xy[2*next+1], c.buf.xy[2*v+1], orientationEpsilon) {
		useFallback = true
	}
	dx1 := c.buf.xy[2*next] - c.buf.xy[2*v]
	dy1 := c.buf.xy[2*next+1] - c.buf.xy[2*v+1]

	cross := dx1*dy0 - dx0*dy1
	if !useFallback {
		if cross > 0 {
			return false // counter-clockwise
		}
		if cross < 0 {
			return true
		}
	}

	// Degenerate pivot: decide by the sign of the shoelace sum.
	sum := c.buf.xy[0] * (c.buf.xy[3] - c.buf.xy[2*(n-1)+1])
	for i := 1; i < n-1; i++ {
		sum += c.buf.xy[2*i] * (c.buf.xy[2*i+3] - c.buf.xy[2*i-1])
	}
	sum += c.buf.xy[2*(n-1)] * (c.buf.xy[1] - c.buf.xy[2*(n-2)+1])
	return sum < 0
}

const (
	segmentizeRelEpsilonLengthSq = 1e-5
	segmentizeRelEpsilonRound    = 1e-2
	// segmentizeMaxPoints bounds intermediate vertex allocation.
	segmentizeMaxPoints = 2 << 26
)

// Segmentize inserts evenly spaced intermediate vertices into every segment
// longer than maxLength. Z and M of intermediate vertices are copied from
// the segment start vertex, not interpolated. The curve is canonicalized by
// orientation first so a curve and its reverse segmentize identically.
func (c *Curve) Segmentize(maxLength float64) error {
	if maxLength <= 0 {
		return ErrInvalidArgument
	}
	n := c.buf.n
	if n < 2 {
		return nil
	}

	// Canonical orientation: same line followed in both directions must
	// yield the same result.
	if c.buf.xy[0] < c.buf.xy[2*(n-1)] ||
		(c.buf.xy[0] == c.buf.xy[2*(n-1)] && c.buf.xy[1] < c.buf.xy[2*(n-1)+1]) {
		c.buf.reverse()
		err := c.Segmentize(maxLength)
		c.buf.reverse()
		return err
	}

	maxLenSq := maxLength * maxLength

	intermediates := func(i int) int {
		dx := c.buf.xy[2*i+2] - c.buf.xy[2*i]
		dy := c.buf.xy[2*i+3] - c.buf.xy[2*i+1]
		distSq := dx*dx + dy*dy
		if distSq-maxLenSq <= segmentizeRelEpsilonLengthSq*maxLenSq {
			return 0
		}
		f := math.Floor(math.Sqrt(distSq/maxLenSq) - segmentizeRelEpsilonRound)
		if f >= segmentizeMaxPoints {
			return segmentizeMaxPoints
		}
		if f < 0 {
			return 0
		}
		return int(f)
	}

	// First pass: count.
	newCount := 0
	for i := 0; i < n; i++ {
		newCount++
		if i == n-1 {
			break
		}
		k := intermediates(i)
		if newCount > segmentizeMaxPoints || k >= segmentizeMaxPoints {
			return ErrTooManyPoints
		}
		newCount += k
	}
	if newCount == n {
		return nil
	}

	// Second pass: fill. Kept in sync with the counting pass.
	out := coordBuf{hasZ: c.buf.hasZ, hasM: c.buf.hasM}
	if err := out.setNumPoints(newCount, false); err != nil {
		return err
	}
	j := 0
	for i := 0; i < n; i++ {
		out.xy[2*j] = c.buf.xy[2*i]
		out.xy[2*j+1] = c.buf.xy[2*i+1]
		if c.buf.hasZ {
			out.z[j] = c.buf.z[i]
		}
		if c.buf.hasM {
			out.m[j] = c.buf.m[i]
		}
		j++
		if i == n-1 {
			break
		}
		k := intermediates(i)
		if k > 0 {
			dx := c.buf.xy[2*i+2] - c.buf.xy[2*i]
			dy := c.buf.xy[2*i+3] - c.buf.xy[2*i+1]
			stepX := dx / float64(k+1)
			stepY := dy / float64(k+1)
			for s := 1; s <= k; s++ {
				out.xy[2*(j+s-1)] = c.buf.xy[2*i] + float64(s)*stepX
				out.xy[2*(j+s-1)+1] = c.buf.xy[2*i+1] + float64(s)*stepY
				if c.buf.hasZ {
					// No interpolation.
					out.z[j+s-1] = c.buf.z[i]
				}
				if c.buf.hasM {
					// No interpolation.
					out.m[j+s-1] = c.buf.m[i]
				}
			}
			j += k
		}
	}
	c.buf = out
	return nil
}

// Project returns the distance from the curve origin to the projection of
// the given point onto the curve. It requires the optional geometry-engine
// backend, which is not compiled into this build.
func (c *Curve) Project(x, y float64) (float64, error) {
	return -1, ErrUnsupported
}
