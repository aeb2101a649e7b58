package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic RNG stream for one group of one run, so sampled
	// values do not depend on the order groups are processed in.
	Stream(ctx context.Context, runKey, group string, baseSeed int64) (*rand.Rand, error)
}
