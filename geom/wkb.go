package geom

import (
	"encoding/binary"
	"math"
)

// ByteOrder is the WKB byte-order marker.
type ByteOrder byte

const (
	// BigEndian is WKB XDR order.
	BigEndian ByteOrder = 0
	// LittleEndian is WKB NDR order.
	LittleEndian ByteOrder = 1
)

// WKBVariant selects how dimensionality is folded into the wire type code.
type WKBVariant int

const (
	// VariantIso encodes Z/M in the numeric type code (1002, 2002, 3002).
	VariantIso WKBVariant = iota
	// VariantFlatBits encodes Z as the 0x80000000 bit and M as 0x40000000
	// over the flat type code.
	VariantFlatBits
)

const (
	wkbCurveType = 2 // LineString
	wkbHeaderLen = 9 // order byte + type + point count

	wkbZBit = 0x80000000
	wkbMBit = 0x40000000
)

// WKBOptions controls MarshalWKB output. Precision fields give the number of
// significant mantissa bits to keep per coordinate plane; a negative value
// (the default) disables rounding.
type WKBOptions struct {
	Order       ByteOrder
	Variant     WKBVariant
	XYPrecision int
	ZPrecision  int
	MPrecision  int
}

// DefaultWKBOptions returns little-endian ISO output with no rounding.
func DefaultWKBOptions() *WKBOptions {
	return &WKBOptions{
		Order:       LittleEndian,
		Variant:     VariantIso,
		XYPrecision: -1,
		ZPrecision:  -1,
		MPrecision:  -1,
	}
}

// WKBSize returns the serialized size of the curve in bytes.
func (c *Curve) WKBSize() int {
	return wkbHeaderLen + 8*c.Dimension().Size()*c.buf.n
}

// roundIEEE754 rounds v to keep the given number of significant mantissa
// bits, producing reproducible, compressible output. Out-of-range bit counts
// disable rounding.
func roundIEEE754(v float64, bits int) float64 {
	if bits < 0 || bits >= 52 {
		return v
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	ui := math.Float64bits(v)
	shift := uint(52 - bits)
	ui += uint64(1) << (shift - 1)
	ui &^= uint64(1)<<shift - 1
	return math.Float64frombits(ui)
}

func (c *Curve) wireTypeCode(variant WKBVariant) uint32 {
	t := uint32(wkbCurveType)
	switch variant {
	case VariantFlatBits:
		if c.buf.hasZ {
			t |= wkbZBit
		}
		if c.buf.hasM {
			t |= wkbMBit
		}
	default:
		if c.buf.hasZ {
			t += 1000
		}
		if c.buf.hasM {
			t += 2000
		}
	}
	return t
}

// MarshalWKB serializes the curve: order marker, type code, point count,
// interleaved per-point X,Y[,Z][,M] doubles. Byte order applies uniformly to
// the 4-byte fields and every coordinate, Z/M planes included.
func (c *Curve) MarshalWKB(opts *WKBOptions) ([]byte, error) {
	if opts == nil {
		opts = DefaultWKBOptions()
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if opts.Order == BigEndian {
		bo = binary.BigEndian
	} else if opts.Order != LittleEndian {
		return nil, ErrInvalidArgument
	}

	buf := make([]byte, c.WKBSize())
	buf[0] = byte(opts.Order)
	bo.PutUint32(buf[1:5], c.wireTypeCode(opts.Variant))
	bo.PutUint32(buf[5:9], uint32(c.buf.n))

	off := wkbHeaderLen
	for i := 0; i < c.buf.n; i++ {
		x := roundIEEE754(c.buf.xy[2*i], opts.XYPrecision)
		y := roundIEEE754(c.buf.xy[2*i+1], opts.XYPrecision)
		bo.PutUint64(buf[off:], math.Float64bits(x))
		bo.PutUint64(buf[off+8:], math.Float64bits(y))
		off += 16
		if c.buf.hasZ {
			z := roundIEEE754(c.buf.z[i], opts.ZPrecision)
			bo.PutUint64(buf[off:], math.Float64bits(z))
			off += 8
		}
		if c.buf.hasM {
			m := roundIEEE754(c.buf.m[i], opts.MPrecision)
			bo.PutUint64(buf[off:], math.Float64bits(m))
			off += 8
		}
	}
	return buf, nil
}

// UnmarshalWKB replaces the curve contents from a WKB buffer and returns the
// number of bytes consumed. Both the ISO and flat-bit dimensionality
// encodings are accepted. Truncated input yields ErrNotEnoughData; an
// impossible declared point count yields ErrCorruptData.
func (c *Curve) UnmarshalWKB(data []byte) (int, error) {
	if len(data) < wkbHeaderLen {
		return 0, ErrNotEnoughData
	}
	var bo binary.ByteOrder
	switch ByteOrder(data[0]) {
	case BigEndian:
		bo = binary.BigEndian
	case LittleEndian:
		bo = binary.LittleEndian
	default:
		return 0, ErrCorruptData
	}

	t := bo.Uint32(data[1:5])
	hasZ := t&wkbZBit != 0
	hasM := t&wkbMBit != 0
	t &^= wkbZBit | wkbMBit
	if t >= 1000 {
		switch t / 1000 {
		case 1:
			hasZ = true
		case 2:
			hasM = true
		case 3:
			hasZ = true
			hasM = true
		default:
			return 0, ErrCorruptData
		}
		t %= 1000
	}
	if t != wkbCurveType {
		return 0, ErrCorruptData
	}

	count := bo.Uint32(data[5:9])
	dim := 2
	if hasZ {
		dim++
	}
	if hasM {
		dim++
	}
	pointSize := 8 * dim
	// Guard count*pointSize against overflowing the size type before any
	// allocation happens.
	if uint64(count) > uint64(math.MaxInt32)/uint64(pointSize) {
		return 0, ErrCorruptData
	}
	needed := int(count) * pointSize
	if len(data)-wkbHeaderLen < needed {
		return 0, ErrNotEnoughData
	}

	if err := c.Set3D(hasZ); err != nil {
		return 0, err
	}
	if err := c.SetMeasured(hasM); err != nil {
		return 0, err
	}
	if err := c.buf.setNumPoints(int(count), false); err != nil {
		return 0, err
	}

	off := wkbHeaderLen
	for i := 0; i < int(count); i++ {
		c.buf.xy[2*i] = math.Float64frombits(bo.Uint64(data[off:]))
		c.buf.xy[2*i+1] = math.Float64frombits(bo.Uint64(data[off+8:]))
		off += 16
		if hasZ {
			c.buf.z[i] = math.Float64frombits(bo.Uint64(data[off:]))
			off += 8
		}
		if hasM {
			c.buf.m[i] = math.Float64frombits(bo.Uint64(data[off:]))
			off += 8
		}
	}
	return off, nil
}
