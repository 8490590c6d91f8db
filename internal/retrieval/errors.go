package retrieval

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch indicates a query or candidate embedding whose length
// disagrees with the rest of the corpus. A corpus with inconsistent embedding
// dimensionality is a data-integrity bug, so search propagates this instead
// of skipping the offending chunk.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrSearchTimeout indicates the candidate scan exceeded its deadline. A
// partial ranking would silently bias results toward chunks scored first, so
// the whole call fails instead.
var ErrSearchTimeout = errors.New("vector search timed out")

// ErrInvalidRating indicates a feedback rating outside the 1-5 scale.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

func dimensionError(want, got int) error {
	return fmt.Errorf("%w: expected %d values, got %d", ErrDimensionMismatch, want, got)
}
