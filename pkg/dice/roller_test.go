package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/models"
)

func TestRollD100Range(t *testing.T) {
	r := NewRoller()
	for i := 0; i < 1000; i++ {
		v := r.RollD100()
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 100)
	}
}

func TestRollD100Uniform(t *testing.T) {
	r := NewSeededRoller(42)
	const samples = 10000
	sum := 0
	for i := 0; i < samples; i++ {
		sum += r.RollD100()
	}
	mean := float64(sum) / samples
	assert.InDelta(t, 50.5, mean, 1.0)
}

func TestSeededRollerReproducible(t *testing.T) {
	a := NewSeededRoller(7)
	b := NewSeededRoller(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.RollD100(), b.RollD100())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		final int
		want  models.Outcome
	}{
		{1, models.OutcomeCatastrophicFailure},
		{5, models.OutcomeCatastrophicFailure},
		{6, models.OutcomeFailure},
		{30, models.OutcomeFailure},
		{31, models.OutcomeMixed},
		{60, models.OutcomeMixed},
		{61, models.OutcomeSuccess},
		{90, models.OutcomeSuccess},
		{91, models.OutcomeCriticalSuccess},
		{100, models.OutcomeCriticalSuccess},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.final), "final=%d", tt.final)
	}
}

func TestClassifyTotal(t *testing.T) {
	// Every value in [1,100] maps to exactly one of the five tiers.
	valid := map[models.Outcome]bool{
		models.OutcomeCatastrophicFailure: true,
		models.OutcomeFailure:             true,
		models.OutcomeMixed:               true,
		models.OutcomeSuccess:             true,
		models.OutcomeCriticalSuccess:     true,
	}
	for v := 1; v <= 100; v++ {
		assert.True(t, valid[Classify(v)])
	}
}
