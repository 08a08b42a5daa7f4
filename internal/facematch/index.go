package facematch

import (
	"sort"

	"github.com/coder/hnsw"
)

// HNSW parameters for face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier widens the candidate set that is rescored exactly.
	HNSWSearchMultiplier = 3
)

// Index is an approximate nearest-neighbour index over gallery positions.
type Index struct {
	graph *hnsw.Graph[int]
}

// NewIndex builds an HNSW graph keyed by each vector's position.
func NewIndex(vectors [][]float32) *Index {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	for i, v := range vectors {
		g.Add(hnsw.MakeNode(i, v))
	}
	return &Index{graph: g}
}

// Search returns up to k candidate positions, in ascending position order.
func (x *Index) Search(query []float32, k int) []int {
	neighbors := x.graph.Search(query, k)
	positions := make([]int, len(neighbors))
	for i, n := range neighbors {
		positions[i] = n.Key
	}
	sort.Ints(positions)
	return positions
}
