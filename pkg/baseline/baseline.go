// Package baseline maintains per-user behavioral fingerprints: aggregate
// typing and pointer features learned from accepted sessions, persisted
// through a Store and compared against new samples. Only derived features
// are ever kept; raw telemetry is never stored.
package baseline

import (
	"math"
	"time"

	"neurogate/pkg/telemetry"
)

// emaAlpha weights new observations when updating an established
// fingerprint.
const emaAlpha = 0.1

// Fingerprint is a user's learned behavioral baseline.
type Fingerprint struct {
	UserID          string  `json:"userId"`
	SampleCount     int     `json:"sampleCount"`
	AvgFlightMs     float64 `json:"avgFlightMs"`
	AvgDwellMs      float64 `json:"avgDwellMs"`
	AvgEntropy      float64 `json:"avgEntropy"`
	AvgPointerSpeed float64 `json:"avgPointerSpeed"` // units/ms
	UpdatedAt       int64   `json:"updatedAt"`
}

// Train folds one accepted session into the fingerprint and returns the
// updated value. The first sample seeds the averages directly; later samples
// move them by an exponential moving average.
func Train(fp Fingerprint, userID string, snap telemetry.Snapshot) Fingerprint {
	flight := mean(snap.KeystrokeDynamics.FlightTimes)
	dwell := mean(snap.KeystrokeDynamics.DwellTimes)
	speed := meanPointerSpeed(snap.PointerPath)

	if fp.SampleCount == 0 {
		fp = Fingerprint{
			UserID:          userID,
			AvgFlightMs:     flight,
			AvgDwellMs:      dwell,
			AvgEntropy:      snap.EntropyScore,
			AvgPointerSpeed: speed,
		}
	} else {
		fp.AvgFlightMs = ema(fp.AvgFlightMs, flight)
		fp.AvgDwellMs = ema(fp.AvgDwellMs, dwell)
		fp.AvgEntropy = ema(fp.AvgEntropy, snap.EntropyScore)
		fp.AvgPointerSpeed = ema(fp.AvgPointerSpeed, speed)
	}
	fp.SampleCount++
	fp.UpdatedAt = time.Now().Unix()
	return fp
}

// Compare scores how closely a new sample matches the fingerprint, in [0,1]
// with 1 meaning identical behavior. An untrained fingerprint compares at a
// neutral 0.5.
func Compare(fp Fingerprint, snap telemetry.Snapshot) float64 {
	if fp.SampleCount == 0 {
		return 0.5
	}

	devs := []float64{
		relativeDeviation(mean(snap.KeystrokeDynamics.FlightTimes), fp.AvgFlightMs),
		relativeDeviation(mean(snap.KeystrokeDynamics.DwellTimes), fp.AvgDwellMs),
		relativeDeviation(snap.EntropyScore, fp.AvgEntropy),
		relativeDeviation(meanPointerSpeed(snap.PointerPath), fp.AvgPointerSpeed),
	}
	total := 0.0
	for _, d := range devs {
		total += d
	}
	similarity := 1.0 - total/float64(len(devs))
	if similarity < 0 {
		return 0
	}
	return similarity
}

func ema(old, observed float64) float64 {
	return (1-emaAlpha)*old + emaAlpha*observed
}

// relativeDeviation returns |observed-expected|/expected capped at 1.
func relativeDeviation(observed, expected float64) float64 {
	if expected == 0 {
		if observed == 0 {
			return 0
		}
		return 1
	}
	d := math.Abs(observed-expected) / math.Abs(expected)
	if d > 1 {
		return 1
	}
	return d
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// meanPointerSpeed averages per-step speed over the path, skipping steps
// with a zero time delta.
func meanPointerSpeed(path []telemetry.PointerSample) float64 {
	if len(path) < 2 {
		return 0
	}
	sum := 0.0
	n := 0
	for i := 1; i < len(path); i++ {
		dt := float64(path[i].TimestampMs - path[i-1].TimestampMs)
		if dt == 0 {
			continue
		}
		dx := path[i].X - path[i-1].X
		dy := path[i].Y - path[i-1].Y
		sum += math.Sqrt(dx*dx+dy*dy) / dt
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
