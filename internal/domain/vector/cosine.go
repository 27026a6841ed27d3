package vector

import "math"

// Cosine returns the cosine similarity of a and b clamped into [0, 1].
// Mismatched or empty inputs and all-zero vectors score 0.
func Cosine(a, b []float64) float64 {
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

	// Clamp: near-collinear vectors can overshoot 1 by an ulp.
	return math.Max(0, math.Min(1, dot/(math.Sqrt(normA)*math.Sqrt(normB))))
}
