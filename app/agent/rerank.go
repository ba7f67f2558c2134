package agent

import (
	"math"
	"sort"

	"github.com/Tristanchrt/local-llm/types"
)

// Rerank recomputes exact cosine similarity between the question vector
// and every candidate that carries a stored vector of matching size, then
// keeps the topK best. The sort is stable so ties keep retrieval order.
func Rerank(question []float32, candidates []types.Candidate, topK int) []types.Candidate {
	survivors := make([]types.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if len(cand.Vector) == 0 || len(cand.Vector) != len(question) {
			continue
		}
		cand.Score = cosine(question, cand.Vector)
		survivors = append(survivors, cand)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Score > survivors[j].Score
	})

	if topK > len(survivors) {
		topK = len(survivors)
	}
	return survivors[:topK]
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
