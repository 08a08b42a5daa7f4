package facematch

import (
	"fmt"
	"sort"

	"github.com/kozaktomas/rollcall/internal/constants"
)

type scored struct {
	pos        int
	similarity float64
}

// Match scores query against every identity in g and tiers the best one.
// The highest similarity wins; on a tie the identity loaded first wins.
// A query whose dimension differs from the gallery's cannot be compared and
// fails recognition.
func Match(query []float32, g *Gallery, t Thresholds) Result {
	if g.Len() == 0 {
		return NoModel()
	}
	unit, ok := Normalize(query)
	if !ok || len(unit) != g.Dim() {
		return RecognitionFailed()
	}

	scores := score(unit, g)
	if len(scores) == 0 {
		return Result{Status: StatusUnknown, Tier: TierNone, Faces: 1, Message: "Unknown face - Not in database"}
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.similarity > best.similarity {
			best = s
		}
	}

	status, tier := t.Classify(best.similarity)
	res := Result{
		Status:     status,
		Similarity: best.similarity,
		Tier:       tier,
		Faces:      1,
		Candidates: topCandidates(scores, g, constants.TopMatches),
	}

	roll := g.identities[best.pos].Roll
	switch status {
	case StatusRecognized:
		res.Roll = roll
		res.Message = fmt.Sprintf("Recognized %s (%.3f)", roll, best.similarity)
	case StatusLowConfidence:
		res.Roll = roll
		res.Message = fmt.Sprintf("Low confidence: %s (%.3f)", roll, best.similarity)
	default:
		res.Message = "Unknown face - Not in database"
	}
	return res
}

// score returns similarities in gallery order. Indexed galleries only score the
// HNSW candidates, rescored exactly.
func score(query []float32, g *Gallery) []scored {
	positions := allPositions(len(g.identities))
	if g.index != nil {
		positions = g.index.Search(query, constants.TopMatches*HNSWSearchMultiplier)
	}
	out := make([]scored, 0, len(positions))
	for _, pos := range positions {
		out = append(out, scored{pos: pos, similarity: Dot(query, g.identities[pos].Embedding)})
	}
	return out
}

func allPositions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func topCandidates(scores []scored, g *Gallery, n int) []Candidate {
	sorted := make([]scored, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].similarity > sorted[j].similarity
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]Candidate, len(sorted))
	for i, s := range sorted {
		out[i] = Candidate{Roll: g.identities[s.pos].Roll, Similarity: s.similarity}
	}
	return out
}
