package rng

import (
	"context"
	"math/rand"
	"time"
)

// Adapter implements ports.RNGPort with djb2-derived seeds
type Adapter struct {
	now func() time.Time
}

// New creates an RNG adapter
func New() *Adapter {
	return &Adapter{now: time.Now}
}

// Stream creates a deterministic RNG stream for one group of a run. The same
// (runKey, group, baseSeed) triple always yields the same sequence; a zero baseSeed
// draws one from the clock.
func (a *Adapter) Stream(ctx context.Context, runKey, group string, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if baseSeed == 0 {
		baseSeed = a.now().UnixNano()
	}
	seed := baseSeed
	if runKey != "" {
		seed = int64(hashString(runKey)) + seed
	}
	if group != "" {
		seed = int64(hashString(group)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2
	}
	return hash
}
