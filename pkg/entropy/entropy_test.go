package entropy

import (
	"math"
	"testing"

	"neurogate/pkg/telemetry"
)

func linearPath(n int) []telemetry.PointerSample {
	path := make([]telemetry.PointerSample, n)
	for i := range path {
		path[i] = telemetry.PointerSample{X: float64(i * 10), Y: 200, TimestampMs: int64(i * 100)}
	}
	return path
}

func jitteredPath(n int) []telemetry.PointerSample {
	path := make([]telemetry.PointerSample, n)
	for i := range path {
		path[i] = telemetry.PointerSample{
			X:           float64(i)*8 + 35*math.Sin(float64(i)*0.9),
			Y:           float64(i)*5 + 22*math.Cos(float64(i)*1.3),
			TimestampMs: int64(i * 14),
		}
	}
	return path
}

func TestScoreShortPathIsNeutral(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		if got := Score(linearPath(n)); got != NeutralScore {
			t.Errorf("path of %d samples: expected neutral %v, got %v", n, NeutralScore, got)
		}
	}
}

func TestScoreLinearPathIsZero(t *testing.T) {
	// Constant velocity means zero acceleration variance everywhere.
	if got := Score(linearPath(30)); got != 0 {
		t.Errorf("linear constant-velocity path: expected 0, got %v", got)
	}
}

func TestScoreJitteredPathRewarded(t *testing.T) {
	got := Score(jitteredPath(30))
	if got <= 0 || got > 100 {
		t.Fatalf("jittered path score %v outside (0,100]", got)
	}
	if got <= Score(linearPath(30)) {
		t.Errorf("jittered path should outscore a linear one")
	}
}

func TestScoreDeterministic(t *testing.T) {
	path := jitteredPath(50)
	a := Score(path)
	b := Score(path)
	if a != b {
		t.Errorf("same path scored differently: %v vs %v", a, b)
	}
}

func TestScoreRepeatedTimestamps(t *testing.T) {
	// Repeated timestamps must not divide by zero; deltas floor at 1ms.
	path := []telemetry.PointerSample{
		{X: 0, Y: 0, TimestampMs: 100},
		{X: 10, Y: 5, TimestampMs: 100},
		{X: 25, Y: 12, TimestampMs: 100},
		{X: 30, Y: 40, TimestampMs: 120},
	}
	got := Score(path)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("non-finite score %v", got)
	}
	if got < 0 || got > 100 {
		t.Errorf("score %v outside [0,100]", got)
	}
}
