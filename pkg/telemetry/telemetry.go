// Package telemetry defines the session-scoped behavioral telemetry record:
// keystroke timing features and the pointer trajectory captured during one
// login attempt. Raw samples are accumulated per attempt and exposed only as
// immutable snapshots; a snapshot is never shared across sessions.
package telemetry

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput is returned when a payload is missing required fields or
// carries malformed sequences. It is always recoverable by resubmitting.
var ErrInvalidInput = errors.New("invalid input")

// PointerSample is a single pointer position event. Immutable once captured.
type PointerSample struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	TimestampMs int64   `json:"timestampMs"`
}

// KeystrokeDynamics captures typing rhythm features. FlightTimes[i] is the
// elapsed time between release of key i-1 and press of key i; DwellTimes[i]
// is the press-to-release duration of key i.
type KeystrokeDynamics struct {
	FlightTimes []float64 `json:"flightTimes"`
	DwellTimes  []float64 `json:"dwellTimes"`
	Keys        []string  `json:"keys"`
}

// Snapshot is the read-only telemetry view scored by the risk engine.
// Owned exclusively by one login attempt.
type Snapshot struct {
	KeystrokeDynamics KeystrokeDynamics `json:"keystrokeDynamics"`
	PointerPath       []PointerSample   `json:"pointerPath"`
	EntropyScore      float64           `json:"entropyScore"`
	SessionDurationMs int64             `json:"sessionDurationMs"`
	CapturedAt        int64             `json:"capturedAt"`
}

// Aggregator accumulates raw events for a single session. It is not safe for
// concurrent use; each attempt owns its own aggregator.
type Aggregator struct {
	keystrokes KeystrokeDynamics
	pointer    []PointerSample
	startedAt  time.Time
}

// NewAggregator starts accumulation for one attempt.
func NewAggregator() *Aggregator {
	return &Aggregator{startedAt: time.Now()}
}

// RecordKeystroke appends one keystroke observation.
func (a *Aggregator) RecordKeystroke(key string, flightMs, dwellMs float64) {
	a.keystrokes.Keys = append(a.keystrokes.Keys, key)
	a.keystrokes.FlightTimes = append(a.keystrokes.FlightTimes, flightMs)
	a.keystrokes.DwellTimes = append(a.keystrokes.DwellTimes, dwellMs)
}

// RecordPointer appends one pointer sample. Samples must arrive in capture
// order; out-of-order timestamps are rejected at validation time.
func (a *Aggregator) RecordPointer(s PointerSample) {
	a.pointer = append(a.pointer, s)
}

// Snapshot returns an immutable copy of the accumulated telemetry. The
// entropy score is supplied by the caller (see pkg/entropy) so the
// aggregator itself stays a plain event sink.
func (a *Aggregator) Snapshot(entropyScore float64) Snapshot {
	ks := KeystrokeDynamics{
		FlightTimes: append([]float64(nil), a.keystrokes.FlightTimes...),
		DwellTimes:  append([]float64(nil), a.keystrokes.DwellTimes...),
		Keys:        append([]string(nil), a.keystrokes.Keys...),
	}
	path := append([]PointerSample(nil), a.pointer...)
	return Snapshot{
		KeystrokeDynamics: ks,
		PointerPath:       path,
		EntropyScore:      entropyScore,
		SessionDurationMs: time.Since(a.startedAt).Milliseconds(),
		CapturedAt:        time.Now().UnixMilli(),
	}
}

// Validate checks a snapshot received from an untrusted boundary before it is
// scored. Loose shapes are rejected rather than silently defaulted.
func Validate(s Snapshot) error {
	if s.EntropyScore < 0 || s.EntropyScore > 100 {
		return fmt.Errorf("%w: entropyScore %.2f outside [0,100]", ErrInvalidInput, s.EntropyScore)
	}
	if s.SessionDurationMs < 0 {
		return fmt.Errorf("%w: negative sessionDurationMs", ErrInvalidInput)
	}
	ks := s.KeystrokeDynamics
	if len(ks.FlightTimes) != len(ks.Keys) || len(ks.DwellTimes) != len(ks.Keys) {
		return fmt.Errorf("%w: keystroke sequences have mismatched lengths (%d flights, %d dwells, %d keys)",
			ErrInvalidInput, len(ks.FlightTimes), len(ks.DwellTimes), len(ks.Keys))
	}
	for i, v := range ks.FlightTimes {
		if v < 0 {
			return fmt.Errorf("%w: negative flight time at index %d", ErrInvalidInput, i)
		}
	}
	for i, v := range ks.DwellTimes {
		if v < 0 {
			return fmt.Errorf("%w: negative dwell time at index %d", ErrInvalidInput, i)
		}
	}
	for i := 1; i < len(s.PointerPath); i++ {
		if s.PointerPath[i].TimestampMs < s.PointerPath[i-1].TimestampMs {
			return fmt.Errorf("%w: pointer path not monotonic at index %d", ErrInvalidInput, i)
		}
	}
	return nil
}
