package pipeline

import (
	"math"

	"github.com/sweetpotato0/ragline/vector"
)

// Diversify reorders results with Maximal Marginal Relevance to reduce
// redundancy in the final context: each pick balances relevance to the query
// against similarity to already-picked chunks. Lambda 1 is pure relevance,
// lambda 0 pure diversity. Chunks without an embedding keep their original
// score and contribute no diversity penalty.
func Diversify(queryVec []float32, results []Result, lambda float32, limit int) []Result {
	if len(results) == 0 {
		return results
	}
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}

	type item struct {
		result Result
		score  float32
	}
	remaining := make([]item, len(results))
	for i, res := range results {
		score := res.FinalScore()
		if len(queryVec) > 0 && len(res.Chunk.Embedding) == len(queryVec) {
			score = vector.CosineSimilarity(queryVec, res.Chunk.Embedding)
		}
		remaining[i] = item{result: res, score: score}
	}

	selected := make([]Result, 0, len(results))
	for len(remaining) > 0 && (limit <= 0 || len(selected) < limit) {
		bestIdx := -1
		bestScore := float32(math.Inf(-1))
		for idx, candidate := range remaining {
			var penalty float32
			for _, picked := range selected {
				if len(candidate.result.Chunk.Embedding) == 0 ||
					len(picked.Chunk.Embedding) != len(candidate.result.Chunk.Embedding) {
					continue
				}
				sim := vector.CosineSimilarity(candidate.result.Chunk.Embedding, picked.Chunk.Embedding)
				if sim > penalty {
					penalty = sim
				}
			}
			score := lambda*candidate.score - (1-lambda)*penalty
			if score > bestScore {
				bestScore = score
				bestIdx = idx
			}
		}
		if bestIdx == -1 {
			break
		}
		selected = append(selected, remaining[bestIdx].result)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
