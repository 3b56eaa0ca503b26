package risk

import (
	"math"
	"reflect"
	"testing"

	"neurogate/pkg/telemetry"
)

// highTrustSnapshot models an unhurried human session: natural entropy, high
// flight-time variance, extensive jittered pointer movement.
func highTrustSnapshot() telemetry.Snapshot {
	path := make([]telemetry.PointerSample, 150)
	for i := range path {
		path[i] = telemetry.PointerSample{
			X:           float64(i)*3 + 40*math.Sin(float64(i)*0.7),
			Y:           float64(i)*2 + 25*math.Cos(float64(i)*1.3),
			TimestampMs: int64(i * 12),
		}
	}
	return telemetry.Snapshot{
		KeystrokeDynamics: telemetry.KeystrokeDynamics{
			FlightTimes: []float64{100, 250, 120, 300, 90},
			DwellTimes:  []float64{80, 120, 95, 140, 70},
			Keys:        []string{"a", "b", "c", "d", "e"},
		},
		PointerPath:       path,
		EntropyScore:      85,
		SessionDurationMs: 8500,
	}
}

// botSnapshot models a scripted submission: low entropy, metronomic typing,
// instant session, no pointer movement.
func botSnapshot() telemetry.Snapshot {
	return telemetry.Snapshot{
		KeystrokeDynamics: telemetry.KeystrokeDynamics{
			FlightTimes: []float64{200, 200, 200, 200},
			DwellTimes:  []float64{100, 100, 100, 100},
			Keys:        []string{"a", "b", "c", "d"},
		},
		EntropyScore:      15,
		SessionDurationMs: 1200,
	}
}

func TestScoreHighTrustSession(t *testing.T) {
	a := Score(highTrustSnapshot())
	if a.Score != 100 {
		t.Errorf("expected trust score 100, got %v (factors %v)", a.Score, a.Factors)
	}
	if a.RequiresChallenge {
		t.Error("high-trust session should not require a challenge")
	}
}

func TestScoreBotSession(t *testing.T) {
	a := Score(botSnapshot())
	if a.Score != 0 {
		t.Errorf("expected trust score 0, got %v (factors %v)", a.Score, a.Factors)
	}
	if !a.RequiresChallenge {
		t.Error("bot session should require a challenge")
	}
}

func TestScoreDeterministic(t *testing.T) {
	for _, snap := range []telemetry.Snapshot{highTrustSnapshot(), botSnapshot(), {}} {
		a := Score(snap)
		b := Score(snap)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("same snapshot scored differently: %+v vs %+v", a, b)
		}
	}
}

func TestScoreClampedAndConsistent(t *testing.T) {
	snaps := []telemetry.Snapshot{
		highTrustSnapshot(),
		botSnapshot(),
		{},
		{EntropyScore: 100, SessionDurationMs: 500000},
		{EntropyScore: 0},
	}
	for _, snap := range snaps {
		a := Score(snap)
		if a.Score < 0 || a.Score > 100 {
			t.Errorf("score %v outside [0,100]", a.Score)
		}
		if a.RequiresChallenge != (a.Score < ChallengeThreshold) {
			t.Errorf("requiresChallenge=%v inconsistent with score %v and threshold %v",
				a.RequiresChallenge, a.Score, ChallengeThreshold)
		}
	}
}

func TestScoreEmptySnapshotDegrades(t *testing.T) {
	// An empty snapshot degrades to penalties, never to an error or panic.
	a := Score(telemetry.Snapshot{})
	if !a.RequiresChallenge {
		t.Error("empty snapshot should require a challenge")
	}
	if len(a.Factors) == 0 {
		t.Error("expected contributing factors to be reported")
	}
}

func TestVariance(t *testing.T) {
	if got := variance([]float64{200, 200, 200}); got != 0 {
		t.Errorf("uniform series: expected variance 0, got %v", got)
	}
	if got := variance([]float64{100}); got != 0 {
		t.Errorf("single sample: expected 0, got %v", got)
	}
	got := variance([]float64{100, 200, 300})
	want := (10000.0 + 0 + 10000.0) / 3.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}
