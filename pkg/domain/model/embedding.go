package model

import "math"

// EmbeddingDimension is the dimension of the embedding vector
// used for entity descriptions and relationship labels/descriptions
const EmbeddingDimension = 768

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 when the lengths differ or either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance is 1 - CosineSimilarity: 0 means identical direction,
// 1 means orthogonal (or incomparable), 2 means opposite
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
