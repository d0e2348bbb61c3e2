package featfile

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/geomantic/featfile/geom"
)

func TestBatchReader(t *testing.T) {
	const n = 25
	path := writeTestFile(t, n, false)
	r, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	br, err := NewBatchReader(r, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer br.Release()

	schema := br.Schema()
	if schema.NumFields() != 3 {
		t.Fatalf("expected 3 fields, got %d", schema.NumFields())
	}
	if schema.Field(0).Name != GeometryFieldName ||
		schema.Field(0).Type.ID() != arrow.BINARY {
		t.Errorf("unexpected geometry field: %v", schema.Field(0))
	}
	if schema.Field(1).Type.ID() != arrow.STRING {
		t.Errorf("expected string field, got %v", schema.Field(1))
	}
	if schema.Field(2).Type.ID() != arrow.INT32 {
		t.Errorf("expected int32 field, got %v", schema.Field(2))
	}

	var rows int64
	for {
		rec, err := br.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}

		geoms := rec.Column(0).(*array.Binary)
		names := rec.Column(1).(*array.String)
		values := rec.Column(2).(*array.Int32)
		for i := 0; i < int(rec.NumRows()); i++ {
			if geoms.IsNull(i) {
				t.Fatal("unexpected null geometry")
			}
			c := geom.NewCurve()
			if _, err := c.UnmarshalWKB(geoms.Value(i)); err != nil {
				t.Fatalf("row %d: %v", i, err)
			}
			if c.NumPoints() != 2 {
				t.Fatalf("row %d: expected 2 points, got %d", i, c.NumPoints())
			}
			if want := fmt.Sprintf("seg-%04d", values.Value(i)); names.Value(i) != want {
				t.Errorf("row %d: expected %q, got %q", i, want, names.Value(i))
			}
		}
		rows += rec.NumRows()
		rec.Release()
	}
	if rows != n {
		t.Errorf("expected %d rows total, got %d", n, rows)
	}
}

func TestBatchReaderSplitsOnVarWidth(t *testing.T) {
	const n = 10
	path := writeTestFile(t, n, false)
	r, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// A 1-byte budget forces one feature per batch, but never zero: the
	// feature crossing the limit still goes out alone.
	br, err := NewBatchReader(r, &BatchOptions{MaxVarBytes: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer br.Release()

	batches := 0
	var rows int64
	for {
		rec, err := br.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if rec.NumRows() != 1 {
			t.Errorf("expected single-row batch, got %d rows", rec.NumRows())
		}
		rows += rec.NumRows()
		batches++
		rec.Release()
	}
	if batches != n || rows != n {
		t.Errorf("expected %d single-row batches, got %d batches / %d rows",
			n, batches, rows)
	}
}

func TestBatchReaderNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nulls.ftf")
	w, err := Create(path, &WriterOptions{
		Columns: testColumns(),
		NoIndex: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// One feature with properties, one with neither geometry nor properties.
	if err := w.Append(&Feature{
		Geometry:   segment(0, 0, 1, 1),
		Properties: map[string]any{"name": "a", "value": int32(1)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(&Feature{}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	br, err := NewBatchReader(r, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer br.Release()

	rec, err := br.Next()
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Release()
	if rec.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", rec.NumRows())
	}

	geoms := rec.Column(0).(*array.Binary)
	names := rec.Column(1).(*array.String)
	values := rec.Column(2).(*array.Int32)
	if geoms.IsNull(0) || names.IsNull(0) || values.IsNull(0) {
		t.Error("row 0 must be fully populated")
	}
	if !geoms.IsNull(1) || !names.IsNull(1) || !values.IsNull(1) {
		t.Error("row 1 must be all null")
	}

	if _, err := br.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestBatchReaderWithSpatialFilter(t *testing.T) {
	const n = 100
	path := writeTestFile(t, n, false)
	r, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.SetSpatialFilter(geom.Envelope{
		MinX: 10.4, MinY: 10.4, MaxX: 10.6, MaxY: 10.6,
	}); err != nil {
		t.Fatal(err)
	}

	br, err := NewBatchReader(r, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer br.Release()

	rec, err := br.Next()
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Release()
	values := rec.Column(2).(*array.Int32)
	found := false
	for i := 0; i < int(rec.NumRows()); i++ {
		if values.Value(i) == 10 {
			found = true
		}
	}
	if !found {
		t.Error("filtered batch missing the matching feature")
	}
}
