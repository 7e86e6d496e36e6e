package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func flags(bits ...int) []bool {
	out := make([]bool, len(bits))
	for n, b := range bits {
		out[n] = b == 1
	}
	return out
}

func TestRunStreakiness(t *testing.T) {
	t.Run("Degenerate", func(t *testing.T) {
		assert.Equal(t, 0.0, RunStreakiness(nil))
		assert.Equal(t, 0.0, RunStreakiness(flags(1)))
		assert.Equal(t, 0.0, RunStreakiness(flags(1, 1, 1, 1)), "all makes")
		assert.Equal(t, 0.0, RunStreakiness(flags(0, 0, 0, 0)), "all misses")
	})

	t.Run("MaximallyStreaky", func(t *testing.T) {
		// Two runs is the theoretical minimum for a mixed sequence.
		assert.Equal(t, 0.0, RunStreakiness(flags(1, 1, 1, 0, 0, 0)))
	})

	t.Run("MaximallyAlternating", func(t *testing.T) {
		// Balanced perfect alternation: R = Rmax.
		assert.Equal(t, 1.0, RunStreakiness(flags(1, 0, 1, 0, 1, 0)))
	})

	t.Run("Unbalanced", func(t *testing.T) {
		// n=5, k=2: Rmin=2, Rmax=2*2+1=5. Sequence 1,0,1,0,0 has R=4.
		assert.InDelta(t, 2.0/3.0, RunStreakiness(flags(1, 0, 1, 0, 0)), 1e-9)
	})

	t.Run("Midrange", func(t *testing.T) {
		// n=6, k=3: Rmin=2, Rmax=6. Sequence 1,1,0,0,1,0 has R=4.
		assert.InDelta(t, 0.5, RunStreakiness(flags(1, 1, 0, 0, 1, 0)), 1e-9)
	})
}

func TestMomentumScore(t *testing.T) {
	t.Run("Degenerate", func(t *testing.T) {
		assert.Equal(t, 0.0, MomentumScore(nil, 0.9, 0.1))
		assert.Equal(t, 0.0, MomentumScore(flags(1, 1, 1), 0.9, 0.1))
		assert.Equal(t, 0.0, MomentumScore(flags(0, 0, 0), 0.9, 0.1))
	})

	t.Run("StreakierScoresHigher", func(t *testing.T) {
		streaky := MomentumScore(flags(1, 1, 1, 1, 0, 0, 0, 0), 0.9, 0.1)
		alternating := MomentumScore(flags(1, 0, 1, 0, 1, 0, 1, 0), 0.9, 0.1)
		assert.Greater(t, streaky, alternating)
	})

	t.Run("SingleShot", func(t *testing.T) {
		// One make: p=1, degenerate.
		assert.Equal(t, 0.0, MomentumScore(flags(1), 0.9, 0.1))
	})

	t.Run("RhoExtendsMemory", func(t *testing.T) {
		seq := flags(1, 1, 1, 1, 0, 0, 0, 0)
		longMemory := MomentumScore(seq, 0.95, 0.1)
		shortMemory := MomentumScore(seq, 0.5, 0.1)
		assert.Greater(t, longMemory, shortMemory)
	})
}
