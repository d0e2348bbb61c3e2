package featfile

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"
)

// encodeProperties serializes the property values of a feature as a tagged
// stream: for each non-null value, a little-endian uint16 column index
// followed by the value in the column's wire encoding. Columns are visited in
// schema order so equal inputs produce equal bytes. String-like values must
// be valid UTF-8.
func encodeProperties(buf *bytes.Buffer, cols []Column, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}
	var scratch [8]byte
	for i := range cols {
		value, ok := props[cols[i].Name]
		if !ok || value == nil {
			continue
		}
		binary.LittleEndian.PutUint16(scratch[:2], uint16(i))
		buf.Write(scratch[:2])
		if err := encodeValue(buf, &cols[i], value, scratch[:]); err != nil {
			return err
		}
	}
	return nil
}

func writeLengthPrefixed(buf *bytes.Buffer, b []byte, scratch []byte) {
	binary.LittleEndian.PutUint32(scratch[:4], uint32(len(b)))
	buf.Write(scratch[:4])
	buf.Write(b)
}

func encodeValue(buf *bytes.Buffer, col *Column, value any, scratch []byte) error {
	switch col.Type {
	case TypeBool:
		v, ok := value.(bool)
		if !ok {
			return valueError(col, value)
		}
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case TypeByte:
		v, ok := toInt64(value)
		if !ok {
			return valueError(col, value)
		}
		buf.WriteByte(byte(int8(v)))
	case TypeUByte:
		v, ok := toInt64(value)
		if !ok {
			return valueError(col, value)
		}
		buf.WriteByte(byte(v))
	case TypeShort:
		v, ok := toInt64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint16(scratch[:2], uint16(int16(v)))
		buf.Write(scratch[:2])
	case TypeUShort:
		v, ok := toInt64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint16(scratch[:2], uint16(v))
		buf.Write(scratch[:2])
	case TypeInt:
		v, ok := toInt64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint32(scratch[:4], uint32(int32(v)))
		buf.Write(scratch[:4])
	case TypeUInt:
		v, ok := toInt64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint32(scratch[:4], uint32(v))
		buf.Write(scratch[:4])
	case TypeLong:
		v, ok := toInt64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint64(scratch[:8], uint64(v))
		buf.Write(scratch[:8])
	case TypeULong:
		v, ok := toUint64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint64(scratch[:8], v)
		buf.Write(scratch[:8])
	case TypeFloat:
		v, ok := toFloat64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(float32(v)))
		buf.Write(scratch[:4])
	case TypeDouble:
		v, ok := toFloat64(value)
		if !ok {
			return valueError(col, value)
		}
		binary.LittleEndian.PutUint64(scratch[:8], math.Float64bits(v))
		buf.Write(scratch[:8])
	case TypeString, TypeDateTime:
		s, ok := value.(string)
		if !ok {
			return valueError(col, value)
		}
		if !utf8.ValidString(s) {
			return fmt.Errorf("featfile: column %q: %w", col.Name, ErrNotUTF8)
		}
		writeLengthPrefixed(buf, []byte(s), scratch)
	case TypeJson:
		var b []byte
		switch v := value.(type) {
		case string:
			b = []byte(v)
		case json.RawMessage:
			b = v
		default:
			var err error
			if b, err = json.Marshal(value); err != nil {
				return fmt.Errorf("featfile: column %q: %w", col.Name, err)
			}
		}
		if !utf8.Valid(b) {
			return fmt.Errorf("featfile: column %q: %w", col.Name, ErrNotUTF8)
		}
		writeLengthPrefixed(buf, b, scratch)
	case TypeBinary:
		b, ok := value.([]byte)
		if !ok {
			return valueError(col, value)
		}
		writeLengthPrefixed(buf, b, scratch)
	default:
		return fmt.Errorf("featfile: column %q has unknown type %d: %w",
			col.Name, col.Type, ErrInvalidColumn)
	}
	return nil
}

func valueError(col *Column, value any) error {
	return fmt.Errorf("featfile: column %q (%v): incompatible value of type %T: %w",
		col.Name, col.Type, value, ErrInvalidColumn)
}

// walkProperties iterates the tagged stream, calling fn once per value with
// the column index and the decoded Go value. Each column may appear at most
// once per feature; a repeated index, an index past the schema, or a value
// running past the end of the stream all mean corruption. A stream shorter
// than one tag plus one byte of payload is corrupt too. Trailing bytes too
// short to hold another tag end the walk.
func walkProperties(data []byte, cols []Column, fn func(col int, value any) error) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) < 3 {
		return fmt.Errorf("featfile: property stream of %d bytes: %w",
			len(data), ErrCorruptData)
	}
	seen := make([]bool, len(cols))
	offset := 0
	for offset+1 < len(data) {
		idx := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if idx >= len(cols) {
			return fmt.Errorf("featfile: property column index %d out of range: %w",
				idx, ErrCorruptData)
		}
		if seen[idx] {
			return fmt.Errorf("featfile: property column %d set twice: %w",
				idx, ErrCorruptData)
		}
		seen[idx] = true
		value, n, err := decodeValue(data[offset:], cols[idx].Type)
		if err != nil {
			return fmt.Errorf("featfile: property column %q: %w", cols[idx].Name, err)
		}
		offset += n
		if err := fn(idx, value); err != nil {
			return err
		}
	}
	return nil
}

// decodeProperties decodes the tagged stream into a map keyed by column name.
// An empty stream yields a nil map.
func decodeProperties(data []byte, cols []Column) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	props := make(map[string]any)
	err := walkProperties(data, cols, func(col int, value any) error {
		props[cols[col].Name] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return props, nil
}

// decodeValue decodes one value in its wire encoding and returns the byte
// count consumed. Unsigned 32-bit values widen to int64 and unsigned 64-bit
// values to float64 so every decoded value fits a signed native type.
func decodeValue(data []byte, t ColumnType) (any, int, error) {
	switch t {
	case TypeBool:
		if len(data) < 1 {
			return nil, 0, ErrCorruptData
		}
		return data[0] != 0, 1, nil
	case TypeByte:
		if len(data) < 1 {
			return nil, 0, ErrCorruptData
		}
		return int8(data[0]), 1, nil
	case TypeUByte:
		if len(data) < 1 {
			return nil, 0, ErrCorruptData
		}
		return data[0], 1, nil
	case TypeShort:
		if len(data) < 2 {
			return nil, 0, ErrCorruptData
		}
		return int16(binary.LittleEndian.Uint16(data)), 2, nil
	case TypeUShort:
		if len(data) < 2 {
			return nil, 0, ErrCorruptData
		}
		return binary.LittleEndian.Uint16(data), 2, nil
	case TypeInt:
		if len(data) < 4 {
			return nil, 0, ErrCorruptData
		}
		return int32(binary.LittleEndian.Uint32(data)), 4, nil
	case TypeUInt:
		if len(data) < 4 {
			return nil, 0, ErrCorruptData
		}
		return int64(binary.LittleEndian.Uint32(data)), 4, nil
	case TypeLong:
		if len(data) < 8 {
			return nil, 0, ErrCorruptData
		}
		return int64(binary.LittleEndian.Uint64(data)), 8, nil
	case TypeULong:
		if len(data) < 8 {
			return nil, 0, ErrCorruptData
		}
		return float64(binary.LittleEndian.Uint64(data)), 8, nil
	case TypeFloat:
		if len(data) < 4 {
			return nil, 0, ErrCorruptData
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), 4, nil
	case TypeDouble:
		if len(data) < 8 {
			return nil, 0, ErrCorruptData
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8, nil
	case TypeString, TypeJson, TypeDateTime:
		b, n, err := readLengthPrefixed(data)
		if err != nil {
			return nil, 0, err
		}
		return string(b), n, nil
	case TypeBinary:
		b, n, err := readLengthPrefixed(data)
		if err != nil {
			return nil, 0, err
		}
		return append([]byte(nil), b...), n, nil
	default:
		return nil, 0, ErrCorruptData
	}
}

func readLengthPrefixed(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, ErrCorruptData
	}
	length := binary.LittleEndian.Uint32(data)
	if uint64(length) > uint64(len(data)-4) {
		return nil, 0, ErrCorruptData
	}
	return data[4 : 4+length], 4 + int(length), nil
}

// Conversion helpers for encode. They accept any Go numeric wide enough to
// carry the value; truncation to the column width is the caller's contract.

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch val := v.(type) {
	case uint:
		return uint64(val), true
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case int:
		if val >= 0 {
			return uint64(val), true
		}
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
	case float64:
		if val >= 0 {
			return uint64(val), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}
