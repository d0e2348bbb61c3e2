// Package geom provides an in-memory polyline (curve) geometry with variable
// coordinate dimensionality (XY, XYZ, XYM, XYZM), a compact binary (WKB)
// codec with byte-order and precision control, and the planar geometric
// algorithms used by the featfile format layer.
package geom

import (
	"errors"
	"math"
)

// Common errors returned by this package.
var (
	ErrTooManyPoints   = errors.New("geom: too many points on curve")
	ErrInvalidArgument = errors.New("geom: invalid argument")
	ErrNotEnoughData   = errors.New("geom: not enough data")
	ErrCorruptData     = errors.New("geom: corrupt data")
	ErrUnsupported     = errors.New("geom: operation not supported")
	ErrNotClosed       = errors.New("geom: curve is not closed")
	ErrTransform       = errors.New("geom: coordinate transformation failed")
)

// Kind identifies the curve subtype.
type Kind int

const (
	// LineString is an open polyline.
	LineString Kind = iota
	// LinearRing is a closed polyline (first vertex equals last vertex).
	// Closure is validated when casting, not enforced continuously.
	LinearRing
)

func (k Kind) String() string {
	switch k {
	case LineString:
		return "LineString"
	case LinearRing:
		return "LinearRing"
	default:
		return "Unknown"
	}
}

// Dimension describes which coordinate planes a vertex carries.
type Dimension int

const (
	DimXY Dimension = iota
	DimXYZ
	DimXYM
	DimXYZM
)

// Size returns the number of coordinate values per vertex.
func (d Dimension) Size() int {
	switch d {
	case DimXYZ, DimXYM:
		return 3
	case DimXYZM:
		return 4
	default:
		return 2
	}
}

func (d Dimension) String() string {
	switch d {
	case DimXY:
		return "xy"
	case DimXYZ:
		return "xyz"
	case DimXYM:
		return "xym"
	case DimXYZM:
		return "xyzm"
	default:
		return "unknown"
	}
}

// Envelope is a 2D bounding box.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
}

// IsInit reports whether the envelope has been merged with at least one point.
func (e *Envelope) IsInit() bool {
	return e.MinX <= e.MaxX && e.MinY <= e.MaxY
}

// EmptyEnvelope returns an envelope that any Merge will overwrite.
func EmptyEnvelope() Envelope {
	return Envelope{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// MergeXY extends the envelope to contain the point (x, y).
func (e *Envelope) MergeXY(x, y float64) {
	if x < e.MinX {
		e.MinX = x
	}
	if x > e.MaxX {
		e.MaxX = x
	}
	if y < e.MinY {
		e.MinY = y
	}
	if y > e.MaxY {
		e.MaxY = y
	}
}

// Merge extends the envelope to contain other.
func (e *Envelope) Merge(other Envelope) {
	e.MergeXY(other.MinX, other.MinY)
	e.MergeXY(other.MaxX, other.MaxY)
}

// Contains reports whether other lies entirely within e (touching counts).
func (e *Envelope) Contains(other Envelope) bool {
	return e.MinX <= other.MinX && e.MinY <= other.MinY &&
		e.MaxX >= other.MaxX && e.MaxY >= other.MaxY
}
