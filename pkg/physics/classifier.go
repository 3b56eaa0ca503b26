// Package physics classifies a short interactive movement trace as human or
// automated. Confidence starts neutral and accumulates five independent
// signed checks; the pass bar sits below neutral so an average human with
// ordinary agitation is accepted while pure bot signatures are rejected.
package physics

import (
	"fmt"
	"math"
)

const (
	// MinSamples is the smallest trace the classifier will score. Shorter
	// traces fail closed: an attacker could otherwise bypass the challenge
	// with a tiny trace.
	MinSamples = 15

	// MaxTraceSamples caps a trace; oldest samples are dropped first.
	MaxTraceSamples = 100

	// HumanThreshold is the confidence bar for a positive verdict.
	HumanThreshold = 0.4

	baselineConfidence = 0.5
)

// Sample is one point of a challenge movement trace.
type Sample struct {
	TimestampMs int64   `json:"timestampMs"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Verdict is the classification result for one trace.
type Verdict struct {
	IsHuman       bool      `json:"isHuman"`
	Confidence    float64   `json:"confidence"`
	Reasons       []string  `json:"reasons"`
	Velocities    []float64 `json:"velocities"`
	Accelerations []float64 `json:"accelerations"`
}

// Trace accumulates movement samples for one challenge attempt, evicting the
// oldest sample once the cap is exceeded.
type Trace struct {
	samples []Sample
}

// Append adds a sample, dropping the oldest beyond MaxTraceSamples.
func (t *Trace) Append(s Sample) {
	t.samples = append(t.samples, s)
	if len(t.samples) > MaxTraceSamples {
		t.samples = t.samples[len(t.samples)-MaxTraceSamples:]
	}
}

// Samples returns a copy of the accumulated trace.
func (t *Trace) Samples() []Sample {
	return append([]Sample(nil), t.samples...)
}

// Len reports the current trace length.
func (t *Trace) Len() int { return len(t.samples) }

// Classify evaluates a movement trace. Pure function: it always terminates
// and identical traces yield identical verdicts.
func Classify(trace []Sample) Verdict {
	if len(trace) < MinSamples {
		return Verdict{
			IsHuman:    false,
			Confidence: 0,
			Reasons:    []string{fmt.Sprintf("insufficient data: %d samples, need %d", len(trace), MinSamples)},
		}
	}

	confidence := baselineConfidence
	var reasons []string

	// Check 1: instant movement between the first two samples.
	firstGap := trace[1].TimestampMs - trace[0].TimestampMs
	switch {
	case firstGap == 0:
		confidence -= 0.3
		reasons = append(reasons, "instant movement start: bot signature")
	case firstGap < 50:
		confidence -= 0.2
		reasons = append(reasons, fmt.Sprintf("movement started after only %dms", firstGap))
	default:
		confidence += 0.1
		reasons = append(reasons, "natural reaction delay before movement")
	}

	velocities := stepVelocities(trace)

	// Check 2: maximum per-step velocity.
	maxV := 0.0
	for _, v := range velocities {
		if v > maxV {
			maxV = v
		}
	}
	if maxV > 500 {
		confidence -= 0.25
		reasons = append(reasons, fmt.Sprintf("impossible velocity %.0f units/ms", maxV))
	} else {
		confidence += 0.1
		reasons = append(reasons, "velocity within human range")
	}

	// Check 3: linearity of the x trajectory.
	lin := xLinearity(trace)
	switch {
	case lin > 0.95:
		confidence -= 0.3
		reasons = append(reasons, fmt.Sprintf("trajectory too linear (%.3f): constant-velocity bot signature", lin))
	case lin > 0.7:
		confidence -= 0.1
		reasons = append(reasons, fmt.Sprintf("trajectory somewhat linear (%.3f)", lin))
	default:
		confidence += 0.2
		reasons = append(reasons, "trajectory shows natural curvature")
	}

	// Check 4: acceleration variance.
	accelerations := make([]float64, 0, len(velocities))
	for i := 1; i < len(velocities); i++ {
		accelerations = append(accelerations, math.Abs(velocities[i]-velocities[i-1]))
	}
	sigma := stdDev(accelerations)
	switch {
	case sigma > 0.05:
		confidence += 0.2
		reasons = append(reasons, "natural acceleration variance")
	case sigma > 0.01:
		confidence += 0.1
		reasons = append(reasons, "moderate acceleration variance")
	default:
		confidence -= 0.15
		reasons = append(reasons, "suspiciously smooth acceleration")
	}

	// Check 5: direction changes over interior samples.
	changes := directionChanges(trace)
	if float64(changes) > 0.2*float64(len(trace)) {
		confidence += 0.15
		reasons = append(reasons, fmt.Sprintf("%d direction changes: human-like agitation", changes))
	}

	if confidence > 1 {
		confidence = 1
	} else if confidence < 0 {
		confidence = 0
	}

	return Verdict{
		IsHuman:       confidence > HumanThreshold,
		Confidence:    confidence,
		Reasons:       reasons,
		Velocities:    velocities,
		Accelerations: accelerations,
	}
}

// stepVelocities computes distance/time for every consecutive pair,
// skipping non-finite values produced by a zero time delta.
func stepVelocities(trace []Sample) []float64 {
	out := make([]float64, 0, len(trace)-1)
	for i := 1; i < len(trace); i++ {
		dx := trace[i].X - trace[i-1].X
		dy := trace[i].Y - trace[i-1].Y
		dt := float64(trace[i].TimestampMs - trace[i-1].TimestampMs)
		v := math.Sqrt(dx*dx+dy*dy) / dt
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// xLinearity fits the x positions against a straight line from the first to
// the last sample and returns an R²-style ratio in [0,1]. All-equal x values
// count as perfectly linear.
func xLinearity(trace []Sample) float64 {
	n := len(trace)
	x0 := trace[0].X
	xN := trace[n-1].X

	mean := 0.0
	for _, s := range trace {
		mean += s.X
	}
	mean /= float64(n)

	ssTot := 0.0
	ssRes := 0.0
	for i, s := range trace {
		predicted := x0 + (xN-x0)*float64(i)/float64(n-1)
		d := s.X - mean
		r := s.X - predicted
		ssTot += d * d
		ssRes += r * r
	}
	if ssTot == 0 {
		return 1
	}
	lin := 1 - ssRes/ssTot
	if lin < 0 {
		return 0
	}
	if lin > 1 {
		return 1
	}
	return lin
}

// directionChanges counts interior samples whose incoming and outgoing unit
// displacement vectors are not near-parallel (dot product below 0.95).
func directionChanges(trace []Sample) int {
	changes := 0
	for i := 1; i < len(trace)-1; i++ {
		inX := trace[i].X - trace[i-1].X
		inY := trace[i].Y - trace[i-1].Y
		outX := trace[i+1].X - trace[i].X
		outY := trace[i+1].Y - trace[i].Y

		inMag := math.Sqrt(inX*inX + inY*inY)
		outMag := math.Sqrt(outX*outX + outY*outY)
		if inMag == 0 || outMag == 0 {
			continue
		}
		dot := (inX*outX + inY*outY) / (inMag * outMag)
		if dot < 0.95 {
			changes++
		}
	}
	return changes
}

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
