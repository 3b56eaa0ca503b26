// Package audit keeps a bounded, concurrency-safe in-memory record of
// terminal verification outcomes for monitoring. The ring is the only shared
// mutable resource in the engine; all mutation is serialized through one
// lock with O(1) hold time.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 50

// Outcome labels a completed verification attempt.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeChallenged Outcome = "challenged"
	OutcomeBlocked    Outcome = "blocked"
)

// Event records one completed attempt. Created exactly once per attempt and
// immutable after creation.
type Event struct {
	ID            string  `json:"id"`
	OccurredAt    int64   `json:"occurredAt"`
	UserID        string  `json:"userId"`
	SourceAddress string  `json:"sourceAddress"`
	TrustScore    float64 `json:"trustScore"`
	Outcome       Outcome `json:"outcome"`
	DisplayTime   string  `json:"displayTime"`
}

// NewEvent stamps a fresh event for the given attempt.
func NewEvent(userID, sourceAddr string, trustScore float64, outcome Outcome) Event {
	now := time.Now()
	return Event{
		ID:            uuid.NewString(),
		OccurredAt:    now.Unix(),
		UserID:        userID,
		SourceAddress: sourceAddr,
		TrustScore:    trustScore,
		Outcome:       outcome,
		DisplayTime:   now.Format("2006-01-02 15:04:05"),
	}
}

// Log is an append-only, capacity-bounded ring of events ordered by
// insertion; the oldest entry is evicted on overflow.
type Log struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	sink     func(Event)
}

// NewLog creates a log holding at most capacity events. A non-positive
// capacity falls back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// OnRecord registers fn to receive every recorded event, invoked outside
// the ring lock. Set once before the log is shared.
func (l *Log) OnRecord(fn func(Event)) {
	l.mu.Lock()
	l.sink = fn
	l.mu.Unlock()
}

// Record appends an event, evicting the oldest entry if the ring is full.
func (l *Log) Record(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	if len(l.events) > l.capacity {
		l.events = l.events[len(l.events)-l.capacity:]
	}
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(e)
	}
}

// List returns a snapshot copy ordered most-recent-first. Callers never see
// the live backing storage and cannot mutate history.
func (l *Log) List() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	for i, e := range l.events {
		out[len(l.events)-1-i] = e
	}
	return out
}

// Len reports the current number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
