package facematch

import (
	"time"
)

// Identity is one enrolled person's reference embedding within a subject.
type Identity struct {
	Roll       string    `json:"roll"`
	Embedding  []float32 `json:"-"`
	ImageCount int       `json:"image_count"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Gallery is an immutable snapshot of a subject's reference store. Identities
// keep the order they were loaded in, which decides ties.
type Gallery struct {
	SubjectID  int64
	LoadedAt   time.Time
	identities []Identity
	dim        int
	index      *Index
}

// NewGallery builds a snapshot. Identities with empty or zero embeddings are dropped
// and the rest are re-normalized to unit length. All identities share the
// dimension of the first usable one; the others are dropped as well.
func NewGallery(subjectID int64, identities []Identity) *Gallery {
	kept := make([]Identity, 0, len(identities))
	dim := 0
	for _, id := range identities {
		unit, ok := Normalize(id.Embedding)
		if !ok {
			continue
		}
		if dim == 0 {
			dim = len(unit)
		}
		if len(unit) != dim {
			continue
		}
		id.Embedding = unit
		kept = append(kept, id)
	}
	return &Gallery{SubjectID: subjectID, LoadedAt: time.Now(), identities: kept, dim: dim}
}

// WithIndex attaches an HNSW index when the gallery has at least minSize
// identities. A minSize of 0 keeps the exact scan.
func (g *Gallery) WithIndex(minSize int) *Gallery {
	if g == nil || minSize <= 0 || len(g.identities) < minSize {
		return g
	}
	vectors := make([][]float32, len(g.identities))
	for i, id := range g.identities {
		vectors[i] = id.Embedding
	}
	g.index = NewIndex(vectors)
	return g
}

// Len returns the number of enrolled identities; a nil gallery has none.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.identities)
}

// Dim returns the embedding dimension shared by every identity.
func (g *Gallery) Dim() int {
	if g == nil {
		return 0
	}
	return g.dim
}

// Indexed reports whether searches go through the HNSW index.
func (g *Gallery) Indexed() bool {
	return g != nil && g.index != nil
}
