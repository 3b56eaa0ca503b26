package session

import (
	"fmt"
	"sync"

	"neurogate/pkg/audit"
	"neurogate/pkg/physics"
	"neurogate/pkg/risk"
	"neurogate/pkg/telemetry"
)

// Manager tracks in-flight attempts per user and serializes their
// transitions. Terminal transitions emit exactly one audit event carrying
// the trust score from the login evaluation.
type Manager struct {
	mu       sync.Mutex
	attempts map[string]*attempt
	log      *audit.Log
}

type attempt struct {
	session Session
	source  string
}

// NewManager creates a manager emitting terminal outcomes to log.
func NewManager(log *audit.Log) *Manager {
	return &Manager{
		attempts: make(map[string]*attempt),
		log:      log,
	}
}

// BeginLogin scores a credential submission. When no challenge is required
// the attempt completes immediately; otherwise the pending challenge kind is
// returned and the attempt waits for CompleteChallenge.
func (m *Manager) BeginLogin(userID, sourceAddr string, snap telemetry.Snapshot) (risk.Assessment, ChallengeKind, error) {
	if userID == "" {
		return risk.Assessment{}, ChallengeNone, fmt.Errorf("%w: missing userId", telemetry.ErrInvalidInput)
	}
	if err := telemetry.Validate(snap); err != nil {
		return risk.Assessment{}, ChallengeNone, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.attempts[userID]; ok {
		return risk.Assessment{}, ChallengeNone,
			fmt.Errorf("%w: attempt already in state %q, reset required", ErrInvalidTransition, a.session.State)
	}

	next, outcome, err := Advance(New(), LoginEvent{Snapshot: snap})
	if err != nil {
		return risk.Assessment{}, ChallengeNone, err
	}

	if outcome != "" {
		m.log.Record(audit.NewEvent(userID, sourceAddr, next.Assessment.Score, outcome))
		return next.Assessment, ChallengeNone, nil
	}

	m.attempts[userID] = &attempt{session: next, source: sourceAddr}
	return next.Assessment, next.Challenge, nil
}

// CompleteChallenge resolves the pending challenge for userID. The physics
// band classifies the submitted trace; the one-time-code band trusts the
// verifier's success flag. Returns whether the attempt passed, the login
// assessment, and the physics verdict when one was computed.
func (m *Manager) CompleteChallenge(userID string, success bool, trace []physics.Sample) (bool, risk.Assessment, *physics.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.attempts[userID]
	if !ok || a.session.State != StateChallenge {
		return false, risk.Assessment{}, nil, fmt.Errorf("%w: no pending challenge for user", ErrInvalidTransition)
	}

	passed := success
	var verdict *physics.Verdict
	if a.session.Challenge == ChallengePhysics {
		v := physics.Classify(trace)
		verdict = &v
		passed = v.IsHuman
	}

	next, outcome, err := Advance(a.session, ChallengeResultEvent{Passed: passed})
	if err != nil {
		return false, a.session.Assessment, verdict, err
	}

	m.log.Record(audit.NewEvent(userID, a.source, next.Assessment.Score, outcome))

	if next.State == StateSuccess {
		delete(m.attempts, userID)
	} else {
		a.session = next
	}
	return passed, next.Assessment, verdict, nil
}

// Reset explicitly re-enters Login after a failed attempt. Retrying without
// a reset is rejected by BeginLogin.
func (m *Manager) Reset(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.attempts[userID]
	if !ok {
		return nil
	}
	// Abandoning a pending challenge counts as a reset; anything else goes
	// through the machine so only Error can be explicitly cleared.
	if a.session.State != StateChallenge {
		if _, _, err := Advance(a.session, ResetEvent{}); err != nil {
			return err
		}
	}
	delete(m.attempts, userID)
	return nil
}

// Pending reports the challenge kind awaiting completion for userID.
func (m *Manager) Pending(userID string) (ChallengeKind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.attempts[userID]
	if !ok || a.session.State != StateChallenge {
		return ChallengeNone, false
	}
	return a.session.Challenge, true
}
