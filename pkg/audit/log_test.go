package audit

import (
	"fmt"
	"sync"
	"testing"
)

func TestRecordListRoundTrip(t *testing.T) {
	l := NewLog(10)
	for i := 0; i < 3; i++ {
		l.Record(NewEvent(fmt.Sprintf("user-%d", i), "10.0.0.1", float64(i*10), OutcomeSuccess))
	}

	events := l.List()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].UserID != "user-2" {
		t.Errorf("expected most recent event first, got %s", events[0].UserID)
	}
	if events[2].UserID != "user-0" {
		t.Errorf("expected oldest event last, got %s", events[2].UserID)
	}
	for _, e := range events {
		if e.ID == "" || e.DisplayTime == "" {
			t.Errorf("event missing id or display time: %+v", e)
		}
	}
}

func TestCapacityBound(t *testing.T) {
	l := NewLog(DefaultCapacity)
	for i := 0; i < 60; i++ {
		l.Record(NewEvent(fmt.Sprintf("user-%d", i), "10.0.0.1", 50, OutcomeBlocked))
	}

	if l.Len() != DefaultCapacity {
		t.Fatalf("expected %d retained events, got %d", DefaultCapacity, l.Len())
	}
	events := l.List()
	if events[0].UserID != "user-59" {
		t.Errorf("expected newest event retained, got %s", events[0].UserID)
	}
	if events[len(events)-1].UserID != "user-10" {
		t.Errorf("expected the 10 oldest events evicted, tail is %s", events[len(events)-1].UserID)
	}
}

func TestListIsSnapshot(t *testing.T) {
	l := NewLog(5)
	l.Record(NewEvent("alice", "10.0.0.1", 80, OutcomeSuccess))

	events := l.List()
	events[0].UserID = "mallory"

	if l.List()[0].UserID != "alice" {
		t.Error("mutating a listed snapshot changed log history")
	}
}

func TestOnRecordSink(t *testing.T) {
	l := NewLog(5)
	var got []Event
	l.OnRecord(func(e Event) { got = append(got, e) })

	l.Record(NewEvent("alice", "10.0.0.1", 80, OutcomeSuccess))
	l.Record(NewEvent("bob", "10.0.0.2", 30, OutcomeBlocked))

	if len(got) != 2 {
		t.Fatalf("expected sink to see 2 events, got %d", len(got))
	}
	if got[1].UserID != "bob" || got[1].Outcome != OutcomeBlocked {
		t.Errorf("unexpected sink event: %+v", got[1])
	}
}

func TestConcurrentRecord(t *testing.T) {
	l := NewLog(DefaultCapacity)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				l.Record(NewEvent(fmt.Sprintf("g%d-u%d", g, i), "10.0.0.1", 50, OutcomeChallenged))
			}
		}(g)
	}
	wg.Wait()

	if l.Len() != DefaultCapacity {
		t.Errorf("expected ring full at %d, got %d", DefaultCapacity, l.Len())
	}
}
