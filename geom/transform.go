package geom

import (
	"fmt"
	"os"
	"strings"
)

// PartialTransformEnv is the environment override that permits keeping only
// the successfully transformed points of a curve instead of failing the
// whole operation.
const PartialTransformEnv = "GEOM_ENABLE_PARTIAL_TRANSFORM"

// Transformer converts coordinates in bulk. Transform operates on parallel
// X, Y and Z slices in place and returns a per-point success vector of the
// same length. A returned error fails the whole operation regardless of the
// success vector.
type Transformer interface {
	Transform(xs, ys, zs []float64) ([]bool, error)
	// TargetSRID identifies the spatial reference the transformer outputs.
	TargetSRID() int
}

func envIsTrue(name string) (value bool, set bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	switch strings.ToUpper(v) {
	case "YES", "TRUE", "ON", "1":
		return true, true
	default:
		return false, true
	}
}

// Transform applies t to every vertex. The coordinates are copied into a
// scratch buffer first so the curve stays intact on failure. By default any
// point failing to transform fails the whole operation; when the
// PartialTransformEnv override is truthy, failed points are dropped and the
// survivors compacted to the front in order. Zero surviving points is always
// a failure. On success the curve adopts the transformer's target SRID.
func (c *Curve) Transform(t Transformer) error {
	n := c.buf.n
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = c.buf.xy[2*i]
		ys[i] = c.buf.xy[2*i+1]
		if c.buf.hasZ {
			zs[i] = c.buf.z[i]
		}
	}

	success, err := t.Transform(xs, ys, zs)
	if err != nil {
		return fmt.Errorf("geom: transform: %w", err)
	}
	if len(success) != n {
		return fmt.Errorf("geom: transform returned %d success flags for %d points: %w",
			len(success), n, ErrTransform)
	}

	partial, partialSet := false, false
	j := 0
	for i := 0; i < n; i++ {
		if success[i] {
			xs[j] = xs[i]
			ys[j] = ys[i]
			zs[j] = zs[i]
			if c.buf.hasM {
				c.buf.m[j] = c.buf.m[i]
			}
			j++
			continue
		}
		if !partialSet {
			partial, partialSet = envIsTrue(PartialTransformEnv)
		}
		if !partial {
			return fmt.Errorf("geom: full transformation failed, but partial is "+
				"possible if you set %s=YES: %w", PartialTransformEnv, ErrTransform)
		}
	}
	if j == 0 && n != 0 {
		return fmt.Errorf("geom: no point could be transformed: %w", ErrTransform)
	}

	if err := c.buf.setNumPoints(j, false); err != nil {
		return err
	}
	for i := 0; i < j; i++ {
		c.buf.xy[2*i] = xs[i]
		c.buf.xy[2*i+1] = ys[i]
		if c.buf.hasZ {
			c.buf.z[i] = zs[i]
		}
	}
	c.srid = t.TargetSRID()
	return nil
}
