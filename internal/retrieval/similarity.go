package retrieval

import "math"

// CosineSimilarity computes the cosine of the angle between two embedding
// vectors: dot product divided by the product of the Euclidean norms. The
// result is in [-1, 1]. Vectors of different lengths fail with
// ErrDimensionMismatch; callers must not truncate or pad.
//
// A zero vector is defined as maximally dissimilar to everything, including
// another zero vector, so either norm being zero yields 0 rather than a
// division by zero.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionError(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
