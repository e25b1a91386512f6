package dataset

import (
	"math/rand/v2"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
)

// Sampler draws rows uniformly with replacement. Two samplers built with the
// same seed over the same dataset produce the same sequence.
type Sampler struct {
	ds  *Dataset
	rng *rand.Rand
}

// NewSampler panics if ds is empty; Load and Clean never return an empty
// dataset.
func NewSampler(ds *Dataset, seed int64) *Sampler {
	if ds.Len() == 0 {
		panic("dataset: sampler over empty dataset")
	}
	return &Sampler{ds: ds, rng: newRand(seed)}
}

// Sample returns a copy of a random row, label included.
func (s *Sampler) Sample() features.Record {
	return s.ds.Row(s.rng.IntN(s.ds.Len()))
}
