package telemetry

import (
	"errors"
	"testing"
)

func TestAggregatorSnapshotIsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.RecordKeystroke("a", 120, 80)
	agg.RecordKeystroke("b", 140, 90)
	agg.RecordPointer(PointerSample{X: 10, Y: 20, TimestampMs: 100})

	snap := agg.Snapshot(60)
	if len(snap.KeystrokeDynamics.Keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(snap.KeystrokeDynamics.Keys))
	}
	if len(snap.PointerPath) != 1 {
		t.Fatalf("expected 1 pointer sample, got %d", len(snap.PointerPath))
	}

	// Mutating the snapshot must not leak back into the aggregator.
	snap.KeystrokeDynamics.FlightTimes[0] = 9999
	snap.PointerPath[0].X = 9999

	snap2 := agg.Snapshot(60)
	if snap2.KeystrokeDynamics.FlightTimes[0] != 120 {
		t.Errorf("aggregator state mutated through snapshot: flight=%v", snap2.KeystrokeDynamics.FlightTimes[0])
	}
	if snap2.PointerPath[0].X != 10 {
		t.Errorf("aggregator state mutated through snapshot: x=%v", snap2.PointerPath[0].X)
	}
}

func TestValidate(t *testing.T) {
	valid := Snapshot{
		KeystrokeDynamics: KeystrokeDynamics{
			FlightTimes: []float64{100, 120},
			DwellTimes:  []float64{80, 90},
			Keys:        []string{"a", "b"},
		},
		PointerPath: []PointerSample{
			{X: 0, Y: 0, TimestampMs: 0},
			{X: 5, Y: 5, TimestampMs: 16},
		},
		EntropyScore:      50,
		SessionDurationMs: 4000,
	}
	if err := Validate(valid); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"entropy above range", func(s *Snapshot) { s.EntropyScore = 101 }},
		{"entropy below range", func(s *Snapshot) { s.EntropyScore = -1 }},
		{"negative duration", func(s *Snapshot) { s.SessionDurationMs = -1 }},
		{"mismatched keystroke lengths", func(s *Snapshot) {
			s.KeystrokeDynamics.FlightTimes = append(s.KeystrokeDynamics.FlightTimes, 130)
		}},
		{"negative flight time", func(s *Snapshot) { s.KeystrokeDynamics.FlightTimes[0] = -5 }},
		{"negative dwell time", func(s *Snapshot) { s.KeystrokeDynamics.DwellTimes[1] = -5 }},
		{"non-monotonic pointer path", func(s *Snapshot) { s.PointerPath[1].TimestampMs = -10 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			s.KeystrokeDynamics.FlightTimes = append([]float64(nil), valid.KeystrokeDynamics.FlightTimes...)
			s.KeystrokeDynamics.DwellTimes = append([]float64(nil), valid.KeystrokeDynamics.DwellTimes...)
			s.PointerPath = append([]PointerSample(nil), valid.PointerPath...)
			tc.mutate(&s)
			err := Validate(s)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
