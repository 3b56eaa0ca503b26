// Package entropy derives a 0-100 naturalness score from pointer movement.
// Near-zero acceleration variance (perfectly smooth or perfectly linear
// motion) is a robotic signature; the transform rewards variance
// monotonically but saturates.
package entropy

import (
	"math"

	"neurogate/pkg/telemetry"
)

// NeutralScore is returned when the path is too short to measure.
const NeutralScore = 50.0

// Score computes the pointer-movement entropy score from a path. Pure
// function of its input: identical paths always yield identical scores.
func Score(path []telemetry.PointerSample) float64 {
	mags := accelMagnitudes(path)
	if len(mags) == 0 {
		return NeutralScore
	}
	sigma := stdDev(mags)
	linearity := math.Exp(-sigma/50.0) * 100.0
	return clamp(100.0-linearity, 0, 100)
}

// accelMagnitudes computes |Δvelocity| for every consecutive sample triple.
// Time deltas are floored to 1 ms so a repeated timestamp cannot divide by
// zero.
func accelMagnitudes(path []telemetry.PointerSample) []float64 {
	if len(path) < 3 {
		return nil
	}
	mags := make([]float64, 0, len(path)-2)
	for i := 2; i < len(path); i++ {
		p1, p2, p3 := path[i-2], path[i-1], path[i]

		dt1 := float64(p2.TimestampMs - p1.TimestampMs)
		dt2 := float64(p3.TimestampMs - p2.TimestampMs)
		if dt1 < 1 {
			dt1 = 1
		}
		if dt2 < 1 {
			dt2 = 1
		}

		v1x := (p2.X - p1.X) / dt1
		v1y := (p2.Y - p1.Y) / dt1
		v2x := (p3.X - p2.X) / dt2
		v2y := (p3.Y - p2.Y) / dt2

		ax := v2x - v1x
		ay := v2y - v1y
		mags = append(mags, math.Sqrt(ax*ax+ay*ay))
	}
	return mags
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
