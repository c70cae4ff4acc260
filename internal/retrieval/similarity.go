// Package retrieval ranks and selects stored prescription context for a query.
package retrieval

import "math"

// CosineSimilarity returns dot(a,b) / (||a|| * ||b||). A zero-length or
// all-zero vector has no defined angle; that case scores 0 so it never
// outranks a real match.
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
