// Package dice implements d100 action resolution: real pseudorandom rolls,
// trope-derived fate modifiers, and outcome classification. The roll itself
// never involves an LLM.
package dice

import (
	"math/rand/v2"
	"sync"

	"github.com/dramaturge/dramaturge/pkg/models"
)

// ModifierBound is the per-modifier clamp for trope fate modifiers.
const ModifierBound = 30

// Roller produces uniform d100 rolls. Safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller creates a roller seeded from the global random source.
func NewRoller() *Roller {
	return &Roller{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededRoller creates a roller with a fixed seed for reproducible rolls.
func NewSeededRoller(seed uint64) *Roller {
	return &Roller{rng: rand.New(rand.NewPCG(seed, seed))}
}

// RollD100 returns a uniform integer in [1, 100].
func (r *Roller) RollD100() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(100) + 1
}

// IntN returns a uniform integer in [0, n). Used for trope pool draws.
func (r *Roller) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Classify maps a final roll value to its outcome tier. The table is total
// over [1, 100]; out-of-range values are clamped first.
func Classify(final int) models.Outcome {
	final = clamp(final, 1, 100)
	switch {
	case final <= 5:
		return models.OutcomeCatastrophicFailure
	case final <= 30:
		return models.OutcomeFailure
	case final <= 60:
		return models.OutcomeMixed
	case final <= 90:
		return models.OutcomeSuccess
	default:
		return models.OutcomeCriticalSuccess
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
