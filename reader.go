package featfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gogama/flatgeobuf/packedrtree"

	"github.com/geomantic/featfile/geom"
)

// VerifyEnv forces record verification on or off for every reader, unless
// the reader options say otherwise.
const VerifyEnv = "FEATFILE_VERIFY_BUFFERS"

const (
	// Records above this size are only accepted after cross-checking the
	// declared length against the file itself.
	recordSoftLimit = 100 * 1024 * 1024
	// No record may exceed this size regardless of the file.
	recordHardLimit = 1 << 31

	initialRecordBuf = 32 * 1024
)

// ReaderOptions configures a featfile reader.
type ReaderOptions struct {
	// NoVerify skips the consistency checks tying each record's geometry
	// dimensionality to the header. The VerifyEnv variable, when set,
	// overrides this field.
	NoVerify bool
}

// Reader reads features from a featfile. It is not safe for concurrent use.
type Reader struct {
	src    io.ReadSeeker
	hdr    *Header
	verify bool

	treeOffset     int64 // packed R-tree position, 0 size when no index
	treeSize       int64
	featuresOffset int64
	fileSize       int64

	buf []byte // grow-only record buffer

	pos      int64 // next sequential record, relative to featuresOffset
	row      int64
	filter   *packedrtree.Box
	searched bool // index was consulted; hits is authoritative even if empty
	hits     []packedrtree.Result
	hitIdx   int

	closeSrc io.Closer
	closed   bool
}

// NewReader opens a featfile from r, which must remain valid for the life of
// the reader.
func NewReader(r io.ReadSeeker, opts *ReaderOptions) (*Reader, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("featfile: read magic: %w", err)
	}
	if !bytes.Equal(magic[:3], Magic[:3]) || !bytes.Equal(magic[4:7], Magic[4:7]) {
		return nil, fmt.Errorf("featfile: bad magic: %w", ErrCorruptData)
	}
	if magic[3] != Magic[3] {
		return nil, fmt.Errorf("featfile: unsupported version %d: %w",
			magic[3], ErrCorruptData)
	}

	hdr, headerLen, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	treeSize, err := indexSize(int(hdr.FeaturesCount), hdr.IndexNodeSize)
	if err != nil {
		return nil, fmt.Errorf("featfile: index geometry: %w", err)
	}

	fileSize, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	fr := &Reader{
		src:            r,
		hdr:            hdr,
		verify:         true,
		treeOffset:     int64(len(Magic) + headerLen),
		treeSize:       treeSize,
		featuresOffset: int64(len(Magic)+headerLen) + treeSize,
		fileSize:       fileSize,
	}
	if opts != nil && opts.NoVerify {
		fr.verify = false
	}
	if v, ok := os.LookupEnv(VerifyEnv); ok {
		switch strings.ToUpper(v) {
		case "NO", "FALSE", "OFF", "0":
			fr.verify = false
		default:
			fr.verify = true
		}
	}
	if fr.featuresOffset > fileSize {
		return nil, fmt.Errorf("featfile: truncated before feature section: %w",
			ErrNotEnoughData)
	}
	return fr, nil
}

// Open opens the named featfile. The underlying file is closed by Close.
func Open(name string, opts *ReaderOptions) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closeSrc = f
	return r, nil
}

// Header returns the layer header.
func (r *Reader) Header() *Header { return r.hdr }

// Close releases the reader. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closeSrc != nil {
		return r.closeSrc.Close()
	}
	return nil
}

// SetSpatialFilter restricts iteration to features whose bounding box
// intersects env, and rewinds. With an index the packed R-tree is searched
// once, streaming over the index block; a filter covering the whole dataset
// extent is dropped since it cannot reject anything. Without an index every
// record is scanned and tested. Call ResetReading to clear the filter.
func (r *Reader) SetSpatialFilter(env geom.Envelope) error {
	if r.closed {
		return ErrClosed
	}
	r.ResetReading()

	box := envelopeToBox(env)
	extent := envelopeToBox(r.hdr.Envelope)
	if r.hdr.Envelope.IsInit() && boxContains(&box, &extent) {
		return nil
	}
	r.filter = &box

	if !r.hdr.HasIndex() {
		return nil
	}
	if _, err := r.src.Seek(r.treeOffset, io.SeekStart); err != nil {
		return err
	}
	hits, err := packedrtree.Seek(r.src, int(r.hdr.FeaturesCount),
		r.hdr.IndexNodeSize, box)
	if err != nil {
		return fmt.Errorf("featfile: index search: %w", err)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Offset < hits[j].Offset })
	r.hits = hits
	r.searched = true
	return nil
}

func boxContains(outer, inner *packedrtree.Box) bool {
	return outer.XMin <= inner.XMin && outer.YMin <= inner.YMin &&
		outer.XMax >= inner.XMax && outer.YMax >= inner.YMax
}

// ResetReading rewinds iteration to the first feature and clears any spatial
// filter.
func (r *Reader) ResetReading() {
	r.pos = 0
	r.row = 0
	r.filter = nil
	r.searched = false
	r.hits = nil
	r.hitIdx = 0
}

// Next returns the next feature, or io.EOF after the last one.
func (r *Reader) Next() (*Feature, error) {
	if r.closed {
		return nil, ErrClosed
	}

	if r.searched {
		// Index-driven iteration over the search hits.
		if r.hitIdx >= len(r.hits) {
			return nil, io.EOF
		}
		hit := r.hits[r.hitIdx]
		r.hitIdx++
		f, _, err := r.readRecordAt(hit.Offset)
		if err != nil {
			return nil, err
		}
		f.ID = int64(hit.RefIndex)
		return f, nil
	}

	for {
		if r.featuresOffset+r.pos >= r.fileSize {
			return nil, io.EOF
		}
		if r.hdr.FeaturesCount > 0 && uint64(r.row) >= r.hdr.FeaturesCount {
			return nil, io.EOF
		}
		f, n, err := r.readRecordAt(r.pos)
		if err != nil {
			return nil, err
		}
		f.ID = r.row
		r.pos += n
		r.row++
		if r.filter == nil || r.matchesFilter(f) {
			return f, nil
		}
	}
}

func (r *Reader) matchesFilter(f *Feature) bool {
	if f.Geometry == nil || f.Geometry.IsEmpty() {
		return false
	}
	box := envelopeToBox(f.Geometry.Envelope())
	return boxIntersects(r.filter, &box)
}

// ReadFeatureAt returns the feature at the given storage row without
// disturbing sequential iteration state. It requires a spatial index, whose
// bottom level doubles as a row-to-offset table.
func (r *Reader) ReadFeatureAt(row int64) (*Feature, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if !r.hdr.HasIndex() {
		return nil, ErrNoIndex
	}
	if row < 0 || uint64(row) >= r.hdr.FeaturesCount {
		return nil, fmt.Errorf("featfile: row %d out of range [0, %d)",
			row, r.hdr.FeaturesCount)
	}

	// Leaf nodes sit at the tail of the level-ordered node array, one per
	// feature in storage order. Each node is 40 bytes: 32 of bounding box,
	// then the feature offset.
	numNodes := r.treeSize / 40
	numLeaves := int64(r.hdr.FeaturesCount)
	leafPos := r.treeOffset + (numNodes-numLeaves+row)*40 + 32
	if _, err := r.src.Seek(leafPos, io.SeekStart); err != nil {
		return nil, err
	}
	var raw [8]byte
	if _, err := io.ReadFull(r.src, raw[:]); err != nil {
		return nil, fmt.Errorf("featfile: read index leaf: %w", err)
	}
	offset := int64(binary.LittleEndian.Uint64(raw[:]))
	if offset < 0 || r.featuresOffset+offset >= r.fileSize {
		return nil, fmt.Errorf("featfile: index leaf offset %d: %w",
			offset, ErrCorruptData)
	}

	f, _, err := r.readRecordAt(offset)
	if err != nil {
		return nil, err
	}
	f.ID = row
	return f, nil
}

// readRecordAt reads and decodes the record at the given offset within the
// feature section. It returns the decoded feature and the total record size
// including the length prefix.
func (r *Reader) readRecordAt(offset int64) (*Feature, int64, error) {
	if _, err := r.src.Seek(r.featuresOffset+offset, io.SeekStart); err != nil {
		return nil, 0, err
	}
	var prefix [4]byte
	if _, err := io.ReadFull(r.src, prefix[:]); err != nil {
		return nil, 0, fmt.Errorf("featfile: read record length: %w", err)
	}
	size := int64(binary.LittleEndian.Uint32(prefix[:]))
	if size < 9 {
		return nil, 0, fmt.Errorf("featfile: record of %d bytes: %w",
			size, ErrCorruptData)
	}
	if size > recordSoftLimit {
		if size >= recordHardLimit ||
			r.featuresOffset+offset+4+size > r.fileSize {
			return nil, 0, fmt.Errorf("featfile: record of %d bytes: %w",
				size, ErrCorruptData)
		}
	}

	rec := r.recordBuf(size)
	if _, err := io.ReadFull(r.src, rec); err != nil {
		return nil, 0, fmt.Errorf("featfile: read record: %w", err)
	}

	curve := geom.NewCurve()
	consumed, err := curve.UnmarshalWKB(rec)
	if err != nil {
		return nil, 0, fmt.Errorf("featfile: record geometry: %w", err)
	}
	if r.verify && !curve.IsEmpty() {
		// A zero-point sub-block stands in for a null geometry and carries
		// no planes, whatever the layer declares.
		if curve.Is3D() != r.hdr.HasZ || curve.IsMeasured() != r.hdr.HasM {
			return nil, 0, fmt.Errorf("featfile: geometry dimensionality "+
				"disagrees with header: %w", ErrCorruptData)
		}
	}

	f := &Feature{}
	if !curve.IsEmpty() {
		if r.hdr.Kind == geom.LinearRing {
			ring, err := geom.CastToRing(curve)
			if err != nil {
				return nil, 0, fmt.Errorf("featfile: ring layer: %w", ErrCorruptData)
			}
			curve = ring
		}
		f.Geometry = curve
	}

	props, err := decodeProperties(rec[consumed:], r.hdr.Columns)
	if err != nil {
		return nil, 0, err
	}
	f.Properties = props
	return f, 4 + size, nil
}

// recordBuf returns a scratch slice of the given size, growing the backing
// buffer geometrically and never shrinking it.
func (r *Reader) recordBuf(size int64) []byte {
	if int64(len(r.buf)) < size {
		newSize := int64(initialRecordBuf)
		if len(r.buf) > 0 {
			newSize = 2 * int64(len(r.buf))
		}
		if newSize < size {
			newSize = size
		}
		r.buf = make([]byte, newSize)
	}
	return r.buf[:size]
}
