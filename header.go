package featfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/geomantic/featfile/geom"
)

// The header block may not exceed this size; anything larger is treated as
// corruption rather than attempted.
const maxHeaderSize = 10 * 1024 * 1024

func kindToWire(k geom.Kind) flattypes.GeometryType {
	if k == geom.LinearRing {
		// Rings are stored as a closed-boundary polygon layer; there is no
		// dedicated ring code on the wire.
		return flattypes.GeometryTypePolygon
	}
	return flattypes.GeometryTypeLineString
}

func kindFromWire(t flattypes.GeometryType) (geom.Kind, error) {
	switch t {
	case flattypes.GeometryTypeLineString:
		return geom.LineString, nil
	case flattypes.GeometryTypePolygon:
		return geom.LinearRing, nil
	default:
		return 0, fmt.Errorf("featfile: unsupported layer geometry type %d: %w",
			t, ErrCorruptData)
	}
}

// wrapEpoch folds a coordinate epoch into the WKT the way ISO 19111 does,
// since the wire schema has no dedicated epoch field.
func wrapEpoch(wkt string, epoch float64) string {
	if epoch <= 0 || wkt == "" {
		return wkt
	}
	return "COORDINATEMETADATA[" + wkt + ",EPOCH[" +
		strconv.FormatFloat(epoch, 'g', -1, 64) + "]]"
}

func unwrapEpoch(wkt string) (string, float64) {
	const prefix = "COORDINATEMETADATA["
	if !strings.HasPrefix(wkt, prefix) || !strings.HasSuffix(wkt, "]]") {
		return wkt, 0
	}
	body := wkt[len(prefix) : len(wkt)-1]
	i := strings.LastIndex(body, ",EPOCH[")
	if i < 0 {
		return wkt, 0
	}
	epoch, err := strconv.ParseFloat(body[i+len(",EPOCH["):len(body)-1], 64)
	if err != nil {
		return wkt, 0
	}
	return body[:i], epoch
}

// marshalHeader serializes h as a size-prefixed FlatBuffers table. When
// placeholder is set, featuresCount gets a dummy non-default value and the
// envelope four NaNs, so the finished buffer has the same byte length as the
// final header written over it in place.
func marshalHeader(h *Header, placeholder bool) []byte {
	builder := flatbuffers.NewBuilder(1024)

	var nameOff, titleOff, descOff, metaOff flatbuffers.UOffsetT
	if h.Name != "" {
		nameOff = builder.CreateString(h.Name)
	}
	if h.Title != "" {
		titleOff = builder.CreateString(h.Title)
	}
	if h.Description != "" {
		descOff = builder.CreateString(h.Description)
	}
	if h.Metadata != "" {
		metaOff = builder.CreateString(h.Metadata)
	}

	colOffs := make([]flatbuffers.UOffsetT, len(h.Columns))
	for i := len(h.Columns) - 1; i >= 0; i-- {
		col := &h.Columns[i]
		cn := builder.CreateString(col.Name)
		var ct, cd, cm flatbuffers.UOffsetT
		if col.Title != "" {
			ct = builder.CreateString(col.Title)
		}
		if col.Description != "" {
			cd = builder.CreateString(col.Description)
		}
		if col.Metadata != "" {
			cm = builder.CreateString(col.Metadata)
		}
		flattypes.ColumnStart(builder)
		flattypes.ColumnAddName(builder, cn)
		flattypes.ColumnAddType(builder, col.Type)
		if ct != 0 {
			flattypes.ColumnAddTitle(builder, ct)
		}
		if cd != 0 {
			flattypes.ColumnAddDescription(builder, cd)
		}
		flattypes.ColumnAddWidth(builder, int32(col.Width))
		flattypes.ColumnAddPrecision(builder, int32(col.Precision))
		flattypes.ColumnAddScale(builder, int32(col.Scale))
		flattypes.ColumnAddNullable(builder, col.Nullable)
		flattypes.ColumnAddUnique(builder, col.Unique)
		flattypes.ColumnAddPrimaryKey(builder, col.PrimaryKey)
		if cm != 0 {
			flattypes.ColumnAddMetadata(builder, cm)
		}
		colOffs[i] = flattypes.ColumnEnd(builder)
	}
	var colsOff flatbuffers.UOffsetT
	if len(colOffs) > 0 {
		flattypes.HeaderStartColumnsVector(builder, len(colOffs))
		for i := len(colOffs) - 1; i >= 0; i-- {
			builder.PrependUOffsetT(colOffs[i])
		}
		colsOff = builder.EndVector(len(colOffs))
	}

	var crsOff flatbuffers.UOffsetT
	if h.CRS != nil {
		var org, name, desc, wkt flatbuffers.UOffsetT
		if h.CRS.Org != "" {
			org = builder.CreateString(h.CRS.Org)
		}
		if h.CRS.Name != "" {
			name = builder.CreateString(h.CRS.Name)
		}
		if h.CRS.Description != "" {
			desc = builder.CreateString(h.CRS.Description)
		}
		if s := wrapEpoch(h.CRS.WKT, h.CRS.Epoch); s != "" {
			wkt = builder.CreateString(s)
		}
		flattypes.CrsStart(builder)
		if org != 0 {
			flattypes.CrsAddOrg(builder, org)
		}
		flattypes.CrsAddCode(builder, int32(h.CRS.Code))
		if name != 0 {
			flattypes.CrsAddName(builder, name)
		}
		if desc != 0 {
			flattypes.CrsAddDescription(builder, desc)
		}
		if wkt != 0 {
			flattypes.CrsAddWkt(builder, wkt)
		}
		crsOff = flattypes.CrsEnd(builder)
	}

	env := h.Envelope
	count := h.FeaturesCount
	if placeholder {
		// Non-default dummies keep both fields present in the table so the
		// rewritten header occupies exactly the same bytes.
		count = 0xDEADBEEF
		env = geom.Envelope{
			MinX: math.NaN(), MinY: math.NaN(),
			MaxX: math.NaN(), MaxY: math.NaN(),
		}
	}
	flattypes.HeaderStartEnvelopeVector(builder, 4)
	builder.PrependFloat64(env.MaxY)
	builder.PrependFloat64(env.MaxX)
	builder.PrependFloat64(env.MinY)
	builder.PrependFloat64(env.MinX)
	envOff := builder.EndVector(4)

	flattypes.HeaderStart(builder)
	if nameOff != 0 {
		flattypes.HeaderAddName(builder, nameOff)
	}
	flattypes.HeaderAddEnvelope(builder, envOff)
	flattypes.HeaderAddGeometryType(builder, kindToWire(h.Kind))
	flattypes.HeaderAddHasZ(builder, h.HasZ)
	flattypes.HeaderAddHasM(builder, h.HasM)
	flattypes.HeaderAddHasT(builder, h.HasT)
	flattypes.HeaderAddHasTm(builder, h.HasTM)
	if colsOff != 0 {
		flattypes.HeaderAddColumns(builder, colsOff)
	}
	flattypes.HeaderAddFeaturesCount(builder, count)
	flattypes.HeaderAddIndexNodeSize(builder, h.IndexNodeSize)
	if crsOff != 0 {
		flattypes.HeaderAddCrs(builder, crsOff)
	}
	if titleOff != 0 {
		flattypes.HeaderAddTitle(builder, titleOff)
	}
	if descOff != 0 {
		flattypes.HeaderAddDescription(builder, descOff)
	}
	if metaOff != 0 {
		flattypes.HeaderAddMetadata(builder, metaOff)
	}
	headerOff := flattypes.HeaderEnd(builder)
	builder.FinishSizePrefixed(headerOff)
	return builder.FinishedBytes()
}

// readHeader reads the size-prefixed header block from r and decodes it. The
// returned byte count covers the 4-byte prefix plus the table.
func readHeader(r io.Reader) (*Header, int, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, 0, fmt.Errorf("featfile: read header size: %w", err)
	}
	size := binary.LittleEndian.Uint32(prefix[:])
	if size == 0 || size > maxHeaderSize {
		return nil, 0, fmt.Errorf("featfile: header size %d out of range: %w",
			size, ErrCorruptData)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, 0, fmt.Errorf("featfile: read header: %w", err)
	}

	fh := flattypes.GetRootAsHeader(body, 0)
	h := &Header{
		Name:          string(fh.Name()),
		Title:         string(fh.Title()),
		Description:   string(fh.Description()),
		Metadata:      string(fh.Metadata()),
		HasZ:          fh.HasZ(),
		HasM:          fh.HasM(),
		HasT:          fh.HasT(),
		HasTM:         fh.HasTm(),
		FeaturesCount: fh.FeaturesCount(),
		IndexNodeSize: fh.IndexNodeSize(),
	}
	kind, err := kindFromWire(fh.GeometryType())
	if err != nil {
		return nil, 0, err
	}
	h.Kind = kind

	if fh.EnvelopeLength() == 4 {
		h.Envelope = geom.Envelope{
			MinX: fh.Envelope(0), MinY: fh.Envelope(1),
			MaxX: fh.Envelope(2), MaxY: fh.Envelope(3),
		}
	}

	nCols := fh.ColumnsLength()
	if nCols > 0 {
		h.Columns = make([]Column, nCols)
		var fc flattypes.Column
		for i := 0; i < nCols; i++ {
			if !fh.Columns(&fc, i) {
				return nil, 0, fmt.Errorf("featfile: column %d unreadable: %w",
					i, ErrCorruptData)
			}
			h.Columns[i] = Column{
				Name:        string(fc.Name()),
				Type:        fc.Type(),
				Title:       string(fc.Title()),
				Description: string(fc.Description()),
				Width:       int(fc.Width()),
				Precision:   int(fc.Precision()),
				Scale:       int(fc.Scale()),
				Nullable:    fc.Nullable(),
				Unique:      fc.Unique(),
				PrimaryKey:  fc.PrimaryKey(),
				Metadata:    string(fc.Metadata()),
			}
		}
	}

	var fcrs flattypes.Crs
	if fh.Crs(&fcrs) != nil {
		crs := &CRS{
			Org:         string(fcrs.Org()),
			Code:        int(fcrs.Code()),
			Name:        string(fcrs.Name()),
			Description: string(fcrs.Description()),
		}
		crs.WKT, crs.Epoch = unwrapEpoch(string(fcrs.Wkt()))
		if crs.Org != "" || crs.Code != 0 || crs.Name != "" ||
			crs.Description != "" || crs.WKT != "" {
			h.CRS = crs
		}
	}

	return h, 4 + int(size), nil
}
