package featfile

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// defaultBatchVarBytes bounds the variable-width payload (geometry blobs,
// strings, binary) gathered into one Arrow record batch.
const defaultBatchVarBytes = 16 * 1024 * 1024

// GeometryFieldName is the name of the leading WKB geometry column in batch
// schemas.
const GeometryFieldName = "geometry"

// BatchOptions configures a BatchReader.
type BatchOptions struct {
	// MaxVarBytes caps the variable-width bytes per batch. 0 means the
	// default. A single oversized feature still goes out alone rather than
	// being split.
	MaxVarBytes int64
}

// BatchReader drains a Reader into Arrow record batches. The schema leads
// with a binary WKB geometry field followed by one field per property
// column; all fields are nullable. Iteration order and any spatial filter
// come from the wrapped Reader.
type BatchReader struct {
	r       *Reader
	schema  *arrow.Schema
	builder *array.RecordBuilder
	maxVar  int64
	pending *Feature
}

func arrowType(t ColumnType) (arrow.DataType, error) {
	switch t {
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case TypeByte:
		return arrow.PrimitiveTypes.Int8, nil
	case TypeUByte:
		return arrow.PrimitiveTypes.Uint8, nil
	case TypeShort:
		return arrow.PrimitiveTypes.Int16, nil
	case TypeUShort:
		return arrow.PrimitiveTypes.Uint16, nil
	case TypeInt:
		return arrow.PrimitiveTypes.Int32, nil
	case TypeUInt:
		return arrow.PrimitiveTypes.Uint32, nil
	case TypeLong:
		return arrow.PrimitiveTypes.Int64, nil
	case TypeULong:
		return arrow.PrimitiveTypes.Float64, nil
	case TypeFloat:
		return arrow.PrimitiveTypes.Float32, nil
	case TypeDouble:
		return arrow.PrimitiveTypes.Float64, nil
	case TypeString, TypeJson, TypeDateTime:
		return arrow.BinaryTypes.String, nil
	case TypeBinary:
		return arrow.BinaryTypes.Binary, nil
	default:
		return nil, fmt.Errorf("featfile: no batch mapping for column type %d: %w",
			t, ErrInvalidColumn)
	}
}

// NewBatchReader wraps r for columnar decoding.
func NewBatchReader(r *Reader, opts *BatchOptions) (*BatchReader, error) {
	cols := r.Header().Columns
	fields := make([]arrow.Field, 0, len(cols)+1)
	fields = append(fields, arrow.Field{
		Name: GeometryFieldName, Type: arrow.BinaryTypes.Binary, Nullable: true,
	})
	for i := range cols {
		dt, err := arrowType(cols[i].Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrow.Field{
			Name: cols[i].Name, Type: dt, Nullable: true,
		})
	}
	schema := arrow.NewSchema(fields, nil)

	maxVar := int64(defaultBatchVarBytes)
	if opts != nil && opts.MaxVarBytes > 0 {
		maxVar = opts.MaxVarBytes
	}
	return &BatchReader{
		r:       r,
		schema:  schema,
		builder: array.NewRecordBuilder(memory.DefaultAllocator, schema),
		maxVar:  maxVar,
	}, nil
}

// Batches is shorthand for NewBatchReader(r, opts).
func (r *Reader) Batches(opts *BatchOptions) (*BatchReader, error) {
	return NewBatchReader(r, opts)
}

// Schema returns the batch schema.
func (b *BatchReader) Schema() *arrow.Schema { return b.schema }

// Release frees the builder memory. The reader itself is not closed.
func (b *BatchReader) Release() {
	if b.builder != nil {
		b.builder.Release()
		b.builder = nil
	}
}

// varWidth estimates the variable-width byte load of one feature.
func varWidth(f *Feature) int64 {
	var n int64
	if f.Geometry != nil {
		n += int64(f.Geometry.WKBSize())
	}
	for _, v := range f.Properties {
		switch val := v.(type) {
		case string:
			n += int64(len(val))
		case []byte:
			n += int64(len(val))
		}
	}
	return n
}

// Next assembles and returns the next record batch, or io.EOF when the
// underlying reader is drained. The batch is cut once its variable-width
// payload would exceed the configured cap; the feature that crossed the line
// is held back and leads the next batch, so no feature ever straddles two
// batches. The caller owns the returned record and must Release it.
func (b *BatchReader) Next() (arrow.Record, error) {
	if b.builder == nil {
		return nil, ErrClosed
	}

	var rows int64
	var varBytes int64
	for {
		f := b.pending
		b.pending = nil
		if f == nil {
			var err error
			f, err = b.r.Next()
			if err == io.EOF {
				if rows == 0 {
					return nil, io.EOF
				}
				break
			}
			if err != nil {
				return nil, err
			}
		}

		need := varWidth(f)
		if rows > 0 && varBytes+need > b.maxVar {
			b.pending = f
			break
		}
		if err := b.append(f); err != nil {
			return nil, err
		}
		rows++
		varBytes += need
	}
	return b.builder.NewRecord(), nil
}

func (b *BatchReader) append(f *Feature) error {
	gb := b.builder.Field(0).(*array.BinaryBuilder)
	if f.Geometry == nil {
		gb.AppendNull()
	} else {
		wkb, err := f.Geometry.MarshalWKB(nil)
		if err != nil {
			return err
		}
		gb.Append(wkb)
	}

	cols := b.r.Header().Columns
	for i := range cols {
		fb := b.builder.Field(i + 1)
		v, ok := f.Properties[cols[i].Name]
		if !ok || v == nil {
			fb.AppendNull()
			continue
		}
		if err := appendValue(fb, cols[i].Type, v); err != nil {
			return fmt.Errorf("featfile: column %q: %w", cols[i].Name, err)
		}
	}
	return nil
}

// appendValue feeds one decoded property value into its column builder. The
// value types are the ones decodeValue produces.
func appendValue(fb array.Builder, t ColumnType, v any) error {
	switch t {
	case TypeBool:
		fb.(*array.BooleanBuilder).Append(v.(bool))
	case TypeByte:
		fb.(*array.Int8Builder).Append(v.(int8))
	case TypeUByte:
		fb.(*array.Uint8Builder).Append(v.(uint8))
	case TypeShort:
		fb.(*array.Int16Builder).Append(v.(int16))
	case TypeUShort:
		fb.(*array.Uint16Builder).Append(v.(uint16))
	case TypeInt:
		fb.(*array.Int32Builder).Append(v.(int32))
	case TypeUInt:
		fb.(*array.Uint32Builder).Append(uint32(v.(int64)))
	case TypeLong:
		fb.(*array.Int64Builder).Append(v.(int64))
	case TypeULong, TypeDouble:
		fb.(*array.Float64Builder).Append(v.(float64))
	case TypeFloat:
		fb.(*array.Float32Builder).Append(v.(float32))
	case TypeString, TypeJson, TypeDateTime:
		fb.(*array.StringBuilder).Append(v.(string))
	case TypeBinary:
		fb.(*array.BinaryBuilder).Append(v.([]byte))
	default:
		return ErrInvalidColumn
	}
	return nil
}
