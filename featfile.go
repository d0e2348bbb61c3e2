// Package featfile reads and writes featfile, a self-describing binary
// container for curve features: a size-prefixed FlatBuffers schema header, an
// optional packed Hilbert R-tree spatial index, and a stream of length-framed
// records pairing WKB geometry with a tagged property stream.
package featfile

import (
	"errors"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"

	"github.com/geomantic/featfile/geom"
)

// Magic identifies a featfile: format tag, major version 1, tag again,
// patch 0.
var Magic = [8]byte{'f', 't', 'f', 0x01, 'f', 't', 'f', 0x00}

// Common errors returned by this package.
var (
	ErrNilGeometry   = errors.New("featfile: nil geometry")
	ErrKindMismatch  = errors.New("featfile: geometry kind does not match layer")
	ErrCorruptData   = errors.New("featfile: corrupt data")
	ErrNotEnoughData = errors.New("featfile: not enough data")
	ErrNoIndex       = errors.New("featfile: file has no spatial index")
	ErrClosed        = errors.New("featfile: closed")
	ErrNotUTF8       = errors.New("featfile: string value is not valid UTF-8")
	ErrInvalidColumn = errors.New("featfile: invalid column")
)

// ColumnType enumerates the property value types a column may hold.
type ColumnType = flattypes.ColumnType

// Column types, in wire order.
const (
	TypeByte     = flattypes.ColumnTypeByte
	TypeUByte    = flattypes.ColumnTypeUByte
	TypeBool     = flattypes.ColumnTypeBool
	TypeShort    = flattypes.ColumnTypeShort
	TypeUShort   = flattypes.ColumnTypeUShort
	TypeInt      = flattypes.ColumnTypeInt
	TypeUInt     = flattypes.ColumnTypeUInt
	TypeLong     = flattypes.ColumnTypeLong
	TypeULong    = flattypes.ColumnTypeULong
	TypeFloat    = flattypes.ColumnTypeFloat
	TypeDouble   = flattypes.ColumnTypeDouble
	TypeString   = flattypes.ColumnTypeString
	TypeJson     = flattypes.ColumnTypeJson
	TypeDateTime = flattypes.ColumnTypeDateTime
	TypeBinary   = flattypes.ColumnTypeBinary
)

// CRS describes the coordinate reference system of a layer.
type CRS struct {
	Org         string  // Authority organization (e.g. "EPSG")
	Code        int     // Authority code (e.g. 4326)
	Name        string  // Human-readable name
	Description string  // Free-form description
	WKT         string  // Well-Known Text definition
	Epoch       float64 // Coordinate epoch in decimal years, 0 if none
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{Org: "EPSG", Code: 4326, Name: "WGS 84"}
}

// Column describes one property column of a layer schema.
type Column struct {
	Name        string
	Type        ColumnType
	Title       string
	Description string
	Width       int // -1 if unset
	Precision   int // -1 if unset
	Scale       int // -1 if unset
	Nullable    bool
	Unique      bool
	PrimaryKey  bool
	Metadata    string // free-form JSON
}

// Header carries the layer-level metadata of a featfile.
type Header struct {
	Name          string
	Kind          geom.Kind
	Title         string
	Description   string
	Metadata      string // free-form JSON
	Envelope      geom.Envelope
	HasZ          bool
	HasM          bool
	HasT          bool
	HasTM         bool
	Columns       []Column
	FeaturesCount uint64
	IndexNodeSize uint16 // 0 means no spatial index
	CRS           *CRS
}

// HasIndex reports whether the file carries a packed R-tree.
func (h *Header) HasIndex() bool {
	return h.IndexNodeSize > 0 && h.FeaturesCount > 0
}

// Feature pairs a curve geometry with its property values, keyed by column
// name. Absent keys and nil values both mean null. ID is the feature's
// position in storage order; the writer assigns it after spatial sorting.
type Feature struct {
	ID         int64
	Geometry   *geom.Curve
	Properties map[string]any
}
