package rtengine

import "math/rand/v2"

// Sampler performs one weighted draw over a slice of non-negative weights,
// returning the chosen index (spec §4.3's "abstract sampler" external
// collaborator). Entries with weight <= 0 are never selectable; Sample is
// never called with an all-zero weights slice.
type Sampler interface {
	Sample(weights []float64) int
}

// defaultSampler is math/rand/v2-backed cumulative-threshold sampling: no
// pack example wraps a third-party PRNG, and weighted random choice is an
// inherently stdlib concern, so this is built directly on the standard
// library, as is DefaultDiceResolver.
type defaultSampler struct{}

// NewDefaultSampler returns the engine's default Sampler.
func NewDefaultSampler() Sampler { return defaultSampler{} }

func (defaultSampler) Sample(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}
	target := rand.Float64() * total
	var cum float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}
