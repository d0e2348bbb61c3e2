package featfile

import (
	"github.com/gogama/flatgeobuf/packedrtree"

	"github.com/geomantic/featfile/geom"
)

// DefaultNodeSize is the packed R-tree branching factor used when the writer
// options leave it unset. 16 is the FlatGeobuf spec default.
const DefaultNodeSize uint16 = 16

func envelopeToBox(e geom.Envelope) packedrtree.Box {
	return packedrtree.Box{XMin: e.MinX, YMin: e.MinY, XMax: e.MaxX, YMax: e.MaxY}
}

func boxToEnvelope(b packedrtree.Box) geom.Envelope {
	return geom.Envelope{MinX: b.XMin, MinY: b.YMin, MaxX: b.XMax, MaxY: b.YMax}
}

// boxIntersects reports whether a and b intersect, with shared boundaries
// counting as intersection. It mirrors the predicate packedrtree uses
// internally, which the library does not export.
func boxIntersects(a, b *packedrtree.Box) bool {
	return a.XMax >= b.XMin && a.YMax >= b.YMin && a.XMin <= b.XMax && a.YMin <= b.YMax
}

// refExtent reduces the bounding boxes of all index references into the
// dataset extent.
func refExtent(refs []packedrtree.Ref) packedrtree.Box {
	bounds := packedrtree.EmptyBox
	for i := range refs {
		bounds.Expand(&refs[i].Box)
	}
	return bounds
}

// indexSize returns the serialized byte size of a packed R-tree over
// numFeatures items.
func indexSize(numFeatures int, nodeSize uint16) (int64, error) {
	if nodeSize == 0 || numFeatures == 0 {
		return 0, nil
	}
	n, err := packedrtree.Size(numFeatures, nodeSize)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
