package search

import "math"

// Relevance buckets search hits by cosine similarity.
type Relevance string

const (
	RelevanceHigh    Relevance = "highly_relevant"
	RelevanceMedium  Relevance = "relevant"
	RelevancePartial Relevance = "partial"
	RelevanceLow     Relevance = "low"
)

// CosineSimilarity returns dot(a,b)/(|a||b|) in [-1,1]. Mismatched lengths or
// a zero-norm vector score 0, never an error.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// BucketRelevance maps a similarity score to its relevance tier.
func BucketRelevance(score float64) Relevance {
	switch {
	case score >= 0.70:
		return RelevanceHigh
	case score >= 0.50:
		return RelevanceMedium
	case score >= 0.35:
		return RelevancePartial
	default:
		return RelevanceLow
	}
}
