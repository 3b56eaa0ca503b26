// Package session sequences one login attempt through risk evaluation, an
// optional challenge, and a terminal outcome. The machine itself is pure;
// Manager layers concurrency and audit emission on top.
package session

import (
	"errors"
	"fmt"

	"neurogate/pkg/audit"
	"neurogate/pkg/risk"
	"neurogate/pkg/telemetry"
)

// ErrInvalidTransition is returned when an event does not apply to the
// current state. Callers recover by resubmitting a valid event or resetting.
var ErrInvalidTransition = errors.New("invalid transition")

// State of one login attempt. Login is initial; Success and Error are
// terminal.
type State string

const (
	StateLogin     State = "login"
	StateChallenge State = "challenge"
	StateSuccess   State = "success"
	StateError     State = "error"
)

// ChallengeKind selects the challenge sub-type by trust-score band.
type ChallengeKind string

const (
	ChallengeNone ChallengeKind = ""
	// ChallengePhysics is issued for scores below 50: the attempt must pass
	// the interactive movement classifier.
	ChallengePhysics ChallengeKind = "physics"
	// ChallengeOneTimeCode is issued for scores in [50,70).
	ChallengeOneTimeCode ChallengeKind = "otp"

	physicsBandCeiling = 50.0
)

// Session is the immutable-by-convention machine value. Advance returns a
// new value rather than mutating in place.
type Session struct {
	State      State
	Challenge  ChallengeKind
	Assessment risk.Assessment
}

// Event drives a transition.
type Event interface{ isEvent() }

// LoginEvent carries the scored telemetry of a credential submission.
type LoginEvent struct {
	Snapshot telemetry.Snapshot
}

// ChallengeResultEvent carries the evaluated outcome of a pending challenge.
type ChallengeResultEvent struct {
	Passed bool
}

// ResetEvent explicitly re-enters Login after a terminal Error.
type ResetEvent struct{}

func (LoginEvent) isEvent()           {}
func (ChallengeResultEvent) isEvent() {}
func (ResetEvent) isEvent()           {}

// New returns a fresh attempt in the Login state.
func New() Session {
	return Session{State: StateLogin}
}

// Advance applies one event and returns the next session value plus the
// outcome to audit when the transition is terminal (empty otherwise).
// Within one session the caller must feed events in causal order; Advance
// rejects anything else.
func Advance(s Session, ev Event) (Session, audit.Outcome, error) {
	switch e := ev.(type) {
	case LoginEvent:
		if s.State != StateLogin {
			return s, "", fmt.Errorf("%w: login event in state %q", ErrInvalidTransition, s.State)
		}
		assessment := risk.Score(e.Snapshot)
		next := Session{Assessment: assessment}
		if !assessment.RequiresChallenge {
			next.State = StateSuccess
			return next, audit.OutcomeSuccess, nil
		}
		next.State = StateChallenge
		next.Challenge = challengeFor(assessment.Score)
		return next, "", nil

	case ChallengeResultEvent:
		if s.State != StateChallenge {
			return s, "", fmt.Errorf("%w: challenge result in state %q", ErrInvalidTransition, s.State)
		}
		next := s
		next.Challenge = ChallengeNone
		if e.Passed {
			next.State = StateSuccess
			return next, audit.OutcomeChallenged, nil
		}
		next.State = StateError
		return next, audit.OutcomeBlocked, nil

	case ResetEvent:
		if s.State != StateError {
			return s, "", fmt.Errorf("%w: reset in state %q", ErrInvalidTransition, s.State)
		}
		return New(), "", nil

	default:
		return s, "", fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}

// challengeFor maps a trust score inside the challenge band to a challenge
// sub-type, preserving the calibrated risk response.
func challengeFor(score float64) ChallengeKind {
	if score < physicsBandCeiling {
		return ChallengePhysics
	}
	return ChallengeOneTimeCode
}
