package featfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/gogama/flatgeobuf/packedrtree"

	"github.com/geomantic/featfile/geom"
)

// TempDirEnv overrides the directory used for the writer's staging file when
// a spatial index is requested.
const TempDirEnv = "FEATFILE_TMPDIR"

// transferBufCap caps the batch buffer used to shuffle staged records into
// Hilbert order.
const transferBufCap = 100 * 1024 * 1024

// WriterOptions configures a featfile writer. The zero value writes an
// unnamed 2D LineString layer with a spatial index.
type WriterOptions struct {
	Name        string
	Title       string
	Description string
	Metadata    string // free-form JSON

	Kind       geom.Kind
	HasZ, HasM bool
	Columns    []Column
	CRS        *CRS

	// NoIndex disables the packed R-tree. Without an index the writer works
	// on any io.Writer and emits records in append order.
	NoIndex       bool
	IndexNodeSize uint16 // 0 means DefaultNodeSize

	// WKB controls geometry encoding (byte order, precision). Nil means
	// geom.DefaultWKBOptions.
	WKB *geom.WKBOptions

	// TempDir holds the index staging file. Empty falls back to the
	// TempDirEnv variable, then the system default.
	TempDir string
}

// Writer serializes features to a featfile. With an index enabled, records
// are staged in a temporary file and rewritten in Hilbert order on Close;
// without one they stream straight through.
type Writer struct {
	dst  io.Writer
	dsts io.WriteSeeker // non-nil when dst can be rewritten in place
	opts WriterOptions
	wkb  *geom.WKBOptions

	tmp     *os.File
	refs    []packedrtree.Ref
	sizes   map[int64]int64 // staging offset -> record byte length
	staged  int64
	maxRec  int64
	count   uint64
	extent  packedrtree.Box
	scratch bytes.Buffer

	headerLen int // placeholder header bytes, no-index path
	closeDst  io.Closer
	closed    bool
}

// NewWriter returns a writer emitting to w. With opts.NoIndex set, w receives
// the magic and header just before the first record; otherwise no bytes until
// Close.
func NewWriter(w io.Writer, opts *WriterOptions) (*Writer, error) {
	fw := &Writer{dst: w, extent: packedrtree.EmptyBox}
	if opts != nil {
		fw.opts = *opts
	}
	if fw.opts.IndexNodeSize == 0 {
		fw.opts.IndexNodeSize = DefaultNodeSize
	}
	fw.wkb = fw.opts.WKB
	if fw.wkb == nil {
		fw.wkb = geom.DefaultWKBOptions()
	}
	fw.dsts, _ = w.(io.WriteSeeker)

	if fw.opts.NoIndex {
		// Stream mode: nothing goes out until the first Append, so a close
		// with zero features can still write a final header.
		return fw, nil
	}

	dir := fw.opts.TempDir
	if dir == "" {
		dir = os.Getenv(TempDirEnv)
	}
	tmp, err := os.CreateTemp(dir, "featfile-staging-*")
	if err != nil {
		return nil, fmt.Errorf("featfile: create staging file: %w", err)
	}
	fw.tmp = tmp
	fw.sizes = make(map[int64]int64)
	return fw, nil
}

// Create opens (truncating) the named file and returns a writer over it. The
// file is closed by Close.
func Create(name string, opts *WriterOptions) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, opts)
	if err != nil {
		f.Close()
		os.Remove(name)
		return nil, err
	}
	w.closeDst = f
	return w, nil
}

// header assembles the layer header from the options and current counters.
// An uninitialized extent is written as four NaNs.
func (w *Writer) header(final bool) *Header {
	env := boxToEnvelope(w.extent)
	if !env.IsInit() {
		env = geom.Envelope{
			MinX: math.NaN(), MinY: math.NaN(),
			MaxX: math.NaN(), MaxY: math.NaN(),
		}
	}
	h := &Header{
		Name:        w.opts.Name,
		Title:       w.opts.Title,
		Description: w.opts.Description,
		Metadata:    w.opts.Metadata,
		Kind:        w.opts.Kind,
		HasZ:        w.opts.HasZ,
		HasM:        w.opts.HasM,
		Columns:     w.opts.Columns,
		CRS:         w.opts.CRS,
		Envelope:    env,
	}
	if final {
		h.FeaturesCount = w.count
		if !w.opts.NoIndex && w.count > 0 {
			h.IndexNodeSize = w.opts.IndexNodeSize
		}
	}
	return h
}

// Append writes one feature. With an index enabled the feature must carry a
// geometry, since the index has nothing to cover otherwise; without one a
// nil geometry is stored as an empty curve. The geometry kind must match the
// layer.
func (w *Writer) Append(f *Feature) error {
	if w.closed {
		return ErrClosed
	}

	g := f.Geometry
	if g == nil || g.IsEmpty() {
		if !w.opts.NoIndex {
			return fmt.Errorf("featfile: spatial index requires a geometry: %w",
				ErrNilGeometry)
		}
		if g == nil {
			if w.opts.Kind == geom.LinearRing {
				g = geom.NewRing()
			} else {
				g = geom.NewCurve()
			}
		}
	}
	if g.Kind() != w.opts.Kind {
		return fmt.Errorf("featfile: feature is %v, layer is %v: %w",
			g.Kind(), w.opts.Kind, ErrKindMismatch)
	}

	wkb, err := g.MarshalWKB(w.wkb)
	if err != nil {
		return err
	}
	w.scratch.Reset()
	var prefix [4]byte
	w.scratch.Write(prefix[:]) // patched below
	w.scratch.Write(wkb)
	if err := encodeProperties(&w.scratch, w.opts.Columns, f.Properties); err != nil {
		return err
	}
	rec := w.scratch.Bytes()
	binary.LittleEndian.PutUint32(rec[:4], uint32(len(rec)-4))

	box := envelopeToBox(g.Envelope())
	if !g.IsEmpty() {
		w.extent.Expand(&box)
	}
	if !w.opts.NoIndex {
		w.refs = append(w.refs, packedrtree.Ref{Box: box, Offset: w.staged})
	}

	if w.tmp != nil {
		if _, err := w.tmp.Write(rec); err != nil {
			return err
		}
		w.sizes[w.staged] = int64(len(rec))
		w.staged += int64(len(rec))
	} else {
		if w.headerLen == 0 {
			if err := w.beginStream(); err != nil {
				return err
			}
		}
		if _, err := w.dst.Write(rec); err != nil {
			return err
		}
	}
	if int64(len(rec)) > w.maxRec {
		w.maxRec = int64(len(rec))
	}
	w.count++
	return nil
}

// Close finalizes the file. With an index it sorts the staged records along
// the Hilbert curve, writes magic, header and tree, and copies the records
// over in their new order; without one it patches the header in place when
// the destination is seekable. The staging file is always removed.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if w.tmp != nil {
		err = w.finalizeIndexed()
		name := w.tmp.Name()
		w.tmp.Close()
		os.Remove(name)
		w.tmp = nil
	} else {
		err = w.finalizeStream()
	}

	if w.closeDst != nil {
		if cerr := w.closeDst.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// beginStream writes the magic and stream-mode header ahead of the first
// record. On a seekable destination the header is a placeholder, rewritten in
// place on Close; otherwise it goes out final with count 0 (unknown).
func (w *Writer) beginStream() error {
	if _, err := w.dst.Write(Magic[:]); err != nil {
		return err
	}
	blob := marshalHeader(w.header(false), w.dsts != nil)
	if _, err := w.dst.Write(blob); err != nil {
		return err
	}
	w.headerLen = len(blob)
	return nil
}

func (w *Writer) finalizeStream() error {
	if w.headerLen == 0 {
		// No feature was ever appended, so no header went out either; write
		// the final one directly.
		if _, err := w.dst.Write(Magic[:]); err != nil {
			return err
		}
		_, err := w.dst.Write(marshalHeader(w.header(true), false))
		return err
	}
	if w.dsts == nil {
		return nil
	}
	blob := marshalHeader(w.header(true), false)
	if len(blob) != w.headerLen {
		return fmt.Errorf("featfile: final header is %d bytes, placeholder was %d: %w",
			len(blob), w.headerLen, ErrCorruptData)
	}
	if _, err := w.dsts.Seek(int64(len(Magic)), io.SeekStart); err != nil {
		return err
	}
	if _, err := w.dsts.Write(blob); err != nil {
		return err
	}
	_, err := w.dsts.Seek(0, io.SeekEnd)
	return err
}

func (w *Writer) finalizeIndexed() error {
	if _, err := w.dst.Write(Magic[:]); err != nil {
		return err
	}

	if w.count == 0 {
		blob := marshalHeader(w.header(true), false)
		_, err := w.dst.Write(blob)
		return err
	}

	bounds := refExtent(w.refs)
	w.extent = bounds
	packedrtree.HilbertSort(w.refs, bounds)

	// Records move to their Hilbert rank; the tree must point at the new
	// offsets while the copy still needs the old ones.
	srcOffsets := make([]int64, len(w.refs))
	var running int64
	for i := range w.refs {
		srcOffsets[i] = w.refs[i].Offset
		w.refs[i].Offset = running
		running += w.sizes[srcOffsets[i]]
	}

	blob := marshalHeader(w.header(true), false)
	if _, err := w.dst.Write(blob); err != nil {
		return err
	}

	prt, err := packedrtree.New(w.refs, w.opts.IndexNodeSize)
	if err != nil {
		return err
	}
	if _, err := prt.Marshal(w.dst); err != nil {
		return err
	}

	return w.copyStaged(srcOffsets)
}

// copyStaged transfers the staged records to the destination in Hilbert
// order. Records are grouped into batches bounded by the transfer buffer and
// each batch is read back in source-offset order, so the staging file is
// scanned mostly forward even though the output order is shuffled.
func (w *Writer) copyStaged(srcOffsets []int64) error {
	bufSize := w.staged
	if bufSize > transferBufCap {
		bufSize = transferBufCap
	}
	if bufSize < w.maxRec {
		bufSize = w.maxRec
	}
	buf := make([]byte, bufSize)

	type copyItem struct {
		src    int64
		size   int64
		bufOff int64
	}
	var batch []copyItem

	flush := func(used int64) error {
		sort.Slice(batch, func(i, j int) bool { return batch[i].src < batch[j].src })
		for _, it := range batch {
			if _, err := w.tmp.ReadAt(buf[it.bufOff:it.bufOff+it.size], it.src); err != nil {
				return err
			}
		}
		_, err := w.dst.Write(buf[:used])
		batch = batch[:0]
		return err
	}

	var used int64
	for i := range srcOffsets {
		size := w.sizes[srcOffsets[i]]
		if used+size > int64(len(buf)) {
			if err := flush(used); err != nil {
				return err
			}
			used = 0
		}
		batch = append(batch, copyItem{src: srcOffsets[i], size: size, bufOff: used})
		used += size
	}
	if used > 0 {
		return flush(used)
	}
	return nil
}
