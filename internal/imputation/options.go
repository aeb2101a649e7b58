package imputation

import (
	"fmt"

	"cimpute/domain/core"
)

// Weighting selects how neighbor values are averaged by the KNN imputer
type Weighting string

const (
	WeightUniform  Weighting = "uniform"
	WeightDistance Weighting = "distance"
)

// ParseWeighting accepts "uniform" or "distance"
func ParseWeighting(s string) (Weighting, error) {
	switch w := Weighting(s); w {
	case WeightUniform, WeightDistance:
		return w, nil
	default:
		return "", core.NewInvalidConfigError("weights", fmt.Sprintf("unknown weighting %q", s))
	}
}

// Options controls one imputation run
type Options struct {
	// MinCS is the confidence threshold; rows scoring below it are left untouched.
	// A value of exactly 0 also enables imputation of MAR rows.
	MinCS float64

	// LocationFraction places the upper MNAR boundary within the detection range.
	LocationFraction float64

	// NNeighbors is k for the MCAR nearest-neighbor imputer.
	NNeighbors int

	Weights Weighting

	// Workers bounds how many groups are imputed concurrently; 1 runs sequentially.
	Workers int

	// Seed fixes MinProb sampling; 0 draws a seed from the clock.
	Seed int64

	// Groups restricts the run to these groups. Empty means every group. Detection
	// bounds are still computed over every mapped group.
	Groups []core.GroupName
}

// DefaultOptions returns min_cs=0.5, location 0.25, five neighbors
func DefaultOptions() Options {
	return Options{
		MinCS:            0.5,
		LocationFraction: 0.25,
		NNeighbors:       5,
		Weights:          WeightUniform,
		Workers:          1,
	}
}

// Validate rejects out-of-range settings before any numeric work
func (o Options) Validate() error {
	if o.MinCS < 0 || o.MinCS > 1 || o.MinCS != o.MinCS {
		return core.NewInvalidConfigError("min_cs", fmt.Sprintf("%v outside [0,1]", o.MinCS))
	}
	if err := validateLocationFraction(o.LocationFraction); err != nil {
		return err
	}
	if o.NNeighbors < 1 {
		return core.NewInvalidConfigError("n_neighbors", fmt.Sprintf("%d is below 1", o.NNeighbors))
	}
	if _, err := ParseWeighting(string(o.Weights)); err != nil {
		return err
	}
	if o.Workers < 1 {
		return core.NewInvalidConfigError("workers", fmt.Sprintf("%d is below 1", o.Workers))
	}
	return nil
}

func validateLocationFraction(f float64) error {
	if f < 0 || f > 1 || f != f {
		return core.NewInvalidConfigError("location_fraction", fmt.Sprintf("%v outside [0,1]", f))
	}
	return nil
}
