package quantum

import (
	"math/rand"
	"sort"
)

// DefaultShots matches the shot count the Aer service uses
const DefaultShots = 1024

// SampleCounts draws shots measurement outcomes from a probability map. Outcomes are
// visited in sorted order so a seeded rng gives reproducible counts.
func SampleCounts(probs map[string]float64, shots int, rng *rand.Rand) map[string]int {
	counts := make(map[string]int)
	if shots <= 0 || len(probs) == 0 {
		return counts
	}

	outcomes := make([]string, 0, len(probs))
	total := 0.0
	for outcome, p := range probs {
		outcomes = append(outcomes, outcome)
		total += p
	}
	sort.Strings(outcomes)

	cumulative := make([]float64, len(outcomes))
	acc := 0.0
	for i, outcome := range outcomes {
		acc += probs[outcome]
		cumulative[i] = acc
	}

	for i := 0; i < shots; i++ {
		r := rng.Float64() * total
		idx := sort.SearchFloat64s(cumulative, r)
		if idx >= len(outcomes) {
			idx = len(outcomes) - 1
		}
		counts[outcomes[idx]]++
	}

	return counts
}
