// Package risk converts a telemetry snapshot into a 0-100 trust score and a
// challenge requirement. The scorer is stateless and deterministic: identical
// snapshots always yield identical assessments.
package risk

import (
	"math"

	"neurogate/pkg/telemetry"
)

// ChallengeThreshold is the fixed trust-score bar below which a challenge is
// required.
const ChallengeThreshold = 70.0

const baselineScore = 50.0

// Assessment is the derived trust decision for one attempt. Recomputed fresh
// per attempt, never mutated in place.
type Assessment struct {
	Score             float64  `json:"trustScore"`
	RequiresChallenge bool     `json:"requiresChallenge"`
	Factors           []string `json:"-"`
}

// Score evaluates one snapshot. Insufficient data degrades to neutral
// defaults instead of failing; callers validate the snapshot shape first.
func Score(s telemetry.Snapshot) Assessment {
	score := baselineScore
	var factors []string

	adjust := func(delta float64, factor string) {
		score += delta
		factors = append(factors, factor)
	}

	switch {
	case s.EntropyScore < 40:
		adjust(-35, "low_entropy")
	case s.EntropyScore > 70:
		adjust(+25, "natural_entropy")
	default:
		adjust(+5, "moderate_entropy")
	}

	ks := s.KeystrokeDynamics
	if len(ks.FlightTimes) > 2 {
		fv := variance(ks.FlightTimes)
		if fv < 100 {
			adjust(-30, "uniform_flight_times")
		} else if fv > 1000 {
			adjust(+15, "natural_flight_variance")
		}
	}
	if len(ks.DwellTimes) > 2 {
		if variance(ks.DwellTimes) < 50 {
			adjust(-15, "uniform_dwell_times")
		}
	}

	if s.SessionDurationMs < 2000 {
		adjust(-20, "very_quick_session")
	} else if s.SessionDurationMs > 300000 {
		adjust(-10, "very_long_session")
	}

	if len(s.PointerPath) > 10 {
		av := pointerAccelVariance(s.PointerPath)
		if av < 1.0 {
			adjust(-25, "linear_pointer_movement")
		} else if av > 50 {
			adjust(+10, "natural_pointer_acceleration")
		}
	}

	if len(ks.Keys) < 3 {
		adjust(-15, "few_keystrokes")
	}

	switch n := len(s.PointerPath); {
	case n < 5:
		adjust(-10, "minimal_pointer_movement")
	case n > 100:
		adjust(+5, "extensive_pointer_movement")
	}

	if score > 100 {
		score = 100
	} else if score < 0 {
		score = 0
	}

	return Assessment{
		Score:             score,
		RequiresChallenge: score < ChallengeThreshold,
		Factors:           factors,
	}
}

// variance is the population variance of a sample series.
func variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	out := 0.0
	for _, v := range data {
		d := v - mean
		out += d * d
	}
	return out / float64(len(data))
}

// pointerAccelVariance computes the variance of acceleration magnitudes over
// the pointer path using seconds-based velocities. Triples with a zero time
// delta are skipped.
func pointerAccelVariance(path []telemetry.PointerSample) float64 {
	if len(path) < 3 {
		return 0
	}
	var mags []float64
	for i := 2; i < len(path); i++ {
		p1, p2, p3 := path[i-2], path[i-1], path[i]

		dt1 := float64(p2.TimestampMs-p1.TimestampMs) / 1000.0
		dt2 := float64(p3.TimestampMs-p2.TimestampMs) / 1000.0
		if dt1 == 0 || dt2 == 0 {
			continue
		}

		v1x := (p2.X - p1.X) / dt1
		v1y := (p2.Y - p1.Y) / dt1
		v2x := (p3.X - p2.X) / dt2
		v2y := (p3.Y - p2.Y) / dt2

		ax := v2x - v1x
		ay := v2y - v1y
		mags = append(mags, math.Sqrt(ax*ax+ay*ay))
	}
	return variance(mags)
}
