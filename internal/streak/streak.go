// Package streak computes shooting streakiness metrics over an ordered
// sequence of make/miss flags.
package streak

import "math"

// minRuns is the minimum possible number of runs for k makes out of n
// shots: one run when the sequence is all makes or all misses, otherwise
// two (all makes together, then all misses together).
func minRuns(k, n int) int {
	if k == 0 || k == n {
		return 1
	}
	return 2
}

// maxRuns is the maximum possible number of runs: perfect alternation of
// the minority outcome, 2*min(k, n-k), plus one dangling majority block
// when the counts are unbalanced.
func maxRuns(k, n int) int {
	if k == 0 || k == n {
		return 1
	}
	r := 2 * min(k, n-k)
	if k != n-k {
		r++
	}
	return r
}

// countRuns counts maximal blocks of equal outcomes.
func countRuns(flags []bool) int {
	if len(flags) <= 1 {
		return 1
	}
	runs := 1
	for n := 1; n < len(flags); n++ {
		if flags[n] != flags[n-1] {
			runs++
		}
	}
	return runs
}

// RunStreakiness computes the run-based streakiness index
//
//	S = (R - Rmin) / (Rmax - Rmin)
//
// where R is the observed number of runs and Rmin/Rmax the theoretical
// bounds for the same make/miss distribution. S is clamped to [0, 1];
// 0 is maximally streaky, 1 maximally alternating. Degenerate inputs
// (one shot or fewer, all makes, all misses) return 0.
func RunStreakiness(flags []bool) float64 {
	if len(flags) <= 1 {
		return 0
	}

	n := len(flags)
	k := 0
	for _, made := range flags {
		if made {
			k++
		}
	}
	if k == 0 || k == n {
		return 0
	}

	rMin, rMax := minRuns(k, n), maxRuns(k, n)
	if rMax == rMin {
		return 0
	}

	s := float64(countRuns(flags)-rMin) / float64(rMax-rMin)
	return math.Max(0, math.Min(1, s))
}

// MomentumScore computes the legacy momentum-based streakiness metric:
// each shot moves a momentum accumulator by its sigma-normalized deviation
// from the player's make rate, decayed by rho, with an extra penalty when
// a shot flips the momentum's sign. The score is the mean absolute
// momentum; higher means streakier.
func MomentumScore(flags []bool, rho, penaltyScale float64) float64 {
	if len(flags) == 0 {
		return 0
	}

	k := 0
	for _, made := range flags {
		if made {
			k++
		}
	}
	p := float64(k) / float64(len(flags))
	if p == 0 || p == 1 {
		return 0
	}

	sigma := math.Sqrt(p * (1 - p))
	var m, acc float64
	for _, made := range flags {
		x := 0.0
		if made {
			x = 1.0
		}
		step := (x - p) / sigma
		future := rho*m + step

		if m != 0 && sign(future) != sign(m) {
			future -= penaltyScale * sign(m)
		}

		m = future
		acc += math.Abs(m)
	}
	return acc / float64(len(flags))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
