package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLocalFallbackEnforcesCapacity(t *testing.T) {
	l := New(nil, 3, time.Minute, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow(ctx, "10.0.0.1")
		if !allowed {
			t.Fatalf("request %d within capacity denied", i+1)
		}
	}
	if allowed, remaining := l.Allow(ctx, "10.0.0.1"); allowed || remaining != 0 {
		t.Errorf("request over capacity allowed (remaining %d)", remaining)
	}
}

func TestLocalFallbackIsPerKey(t *testing.T) {
	l := New(nil, 1, time.Minute, 0)
	ctx := context.Background()

	if allowed, _ := l.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatal("first key denied")
	}
	if allowed, _ := l.Allow(ctx, "10.0.0.2"); !allowed {
		t.Error("independent key shares a bucket")
	}
	if allowed, _ := l.Allow(ctx, "10.0.0.1"); allowed {
		t.Error("exhausted key allowed")
	}
}

func TestResetClearsBudget(t *testing.T) {
	l := New(nil, 1, time.Minute, 0)
	ctx := context.Background()

	l.Allow(ctx, "10.0.0.1")
	if allowed, _ := l.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatal("expected key exhausted")
	}
	if err := l.Reset(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if allowed, _ := l.Allow(ctx, "10.0.0.1"); !allowed {
		t.Error("key still limited after reset")
	}
}

func TestWindowRollover(t *testing.T) {
	l := New(nil, 1, 20*time.Millisecond, 0)
	ctx := context.Background()

	l.Allow(ctx, "10.0.0.1")
	if allowed, _ := l.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatal("expected key exhausted")
	}
	time.Sleep(30 * time.Millisecond)
	if allowed, _ := l.Allow(ctx, "10.0.0.1"); !allowed {
		t.Error("budget not replenished after the window rolled over")
	}
}
