package geom

import "math"

// MaxPoints is the largest vertex count a single curve may hold. It mirrors
// the classic limit of an int32 index over 16-byte XY pairs.
const MaxPoints = math.MaxInt32 / 16

// coordBuf owns the three parallel coordinate planes of a curve. The xy
// plane interleaves X and Y (2 values per vertex); z and m are allocated
// only while their flag is set. All planes share the same capacity.
type coordBuf struct {
	xy   []float64 // len = 2*cap points, always present once allocated
	z    []float64 // nil unless hasZ
	m    []float64 // nil unless hasM
	n    int       // logical point count
	cap  int       // point capacity
	hasZ bool
	hasM bool
}

// reserve ensures capacity for at least count points. First allocation is
// exact; later growth aims for count + count/3 so repeated appends stay
// amortized. If the logical count is zero the old arrays are dropped before
// reallocating, since no data would survive the copy anyway.
func (b *coordBuf) reserve(count int) error {
	if count < 0 || count > MaxPoints {
		return ErrTooManyPoints
	}
	if count <= b.cap {
		return nil
	}

	newCap := count
	if b.n != 0 && count <= MaxPoints-count/3 {
		newCap = count + count/3
	}

	if b.n == 0 && b.xy != nil {
		b.xy = nil
		b.z = nil
		b.m = nil
		b.cap = 0
	}

	xy := make([]float64, 2*newCap)
	copy(xy, b.xy[:2*b.n])
	b.xy = xy
	if b.hasZ {
		z := make([]float64, newCap)
		copy(z, b.z[:b.n])
		b.z = z
	}
	if b.hasM {
		m := make([]float64, newCap)
		copy(m, b.m[:b.n])
		b.m = m
	}
	b.cap = newCap
	return nil
}

// setNumPoints sets the logical count. Shrinking never deallocates. Growing
// reserves capacity and, when zeroize is set, clears the newly exposed range
// of every active plane.
func (b *coordBuf) setNumPoints(n int, zeroize bool) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	if err := b.reserve(n); err != nil {
		return err
	}
	if n > b.n && zeroize {
		for i := 2 * b.n; i < 2*n; i++ {
			b.xy[i] = 0
		}
		if b.hasZ {
			for i := b.n; i < n; i++ {
				b.z[i] = 0
			}
		}
		if b.hasM {
			for i := b.n; i < n; i++ {
				b.m[i] = 0
			}
		}
	}
	b.n = n
	return nil
}

// enableZ allocates the Z plane. Idempotent.
func (b *coordBuf) enableZ() error {
	if b.hasZ {
		return nil
	}
	b.hasZ = true
	if b.cap > 0 {
		b.z = make([]float64, b.cap)
	}
	return nil
}

func (b *coordBuf) disableZ() {
	b.hasZ = false
	b.z = nil
}

// enableM allocates the M plane. Idempotent.
func (b *coordBuf) enableM() error {
	if b.hasM {
		return nil
	}
	b.hasM = true
	if b.cap > 0 {
		b.m = make([]float64, b.cap)
	}
	return nil
}

func (b *coordBuf) disableM() {
	b.hasM = false
	b.m = nil
}

// removeAt shifts every active plane down by one over index i.
func (b *coordBuf) removeAt(i int) error {
	if i < 0 || i >= b.n {
		return ErrInvalidArgument
	}
	copy(b.xy[2*i:], b.xy[2*i+2:2*b.n])
	if b.hasZ {
		copy(b.z[i:], b.z[i+1:b.n])
	}
	if b.hasM {
		copy(b.m[i:], b.m[i+1:b.n])
	}
	b.n--
	return nil
}

// reverse swaps vertex i with vertex n-1-i across all active planes.
func (b *coordBuf) reverse() {
	for i, j := 0, b.n-1; i < j; i, j = i+1, j-1 {
		b.xy[2*i], b.xy[2*j] = b.xy[2*j], b.xy[2*i]
		b.xy[2*i+1], b.xy[2*j+1] = b.xy[2*j+1], b.xy[2*i+1]
		if b.hasZ {
			b.z[i], b.z[j] = b.z[j], b.z[i]
		}
		if b.hasM {
			b.m[i], b.m[j] = b.m[j], b.m[i]
		}
	}
}

// clone deep-copies the logical contents (capacity is not preserved).
func (b *coordBuf) clone() coordBuf {
	out := coordBuf{n: b.n, cap: b.n, hasZ: b.hasZ, hasM: b.hasM}
	if b.n > 0 {
		out.xy = append([]float64(nil), b.xy[:2*b.n]...)
		if b.hasZ {
			out.z = append([]float64(nil), b.z[:b.n]...)
		}
		if b.hasM {
			out.m = append([]float64(nil), b.m[:b.n]...)
		}
	} else {
		if b.hasZ {
			out.z = []float64{}
		}
		if b.hasM {
			out.m = []float64{}
		}
	}
	return out
}
