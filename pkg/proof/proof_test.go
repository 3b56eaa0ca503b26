package proof

import (
	"errors"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := NewIssuer([]byte("unit-test-secret"), "neurogate", time.Minute)

	token, err := issuer.Issue("alice", 87.5)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("expected subject alice, got %q", claims.Subject)
	}
	if claims.TrustScore != 87.5 {
		t.Errorf("expected trust score 87.5, got %v", claims.TrustScore)
	}
	if claims.ID == "" {
		t.Error("expected a unique token id")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer([]byte("secret-one"), "neurogate", time.Minute).Issue("alice", 90)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewIssuer([]byte("secret-two"), "neurogate", time.Minute).Verify(token)
	if !errors.Is(err, ErrInvalidProof) {
		t.Errorf("expected ErrInvalidProof, got %v", err)
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	issuer := NewIssuer([]byte("unit-test-secret"), "neurogate", time.Minute)
	token, err := issuer.Issue("alice", 90)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := issuer.Verify(token + "x"); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("expected ErrInvalidProof, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer([]byte("unit-test-secret"), "neurogate", time.Nanosecond)
	token, err := issuer.Issue("alice", 90)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpiredProof) {
		t.Errorf("expected ErrExpiredProof, got %v", err)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	token, err := NewIssuer([]byte("unit-test-secret"), "someone-else", time.Minute).Issue("alice", 90)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewIssuer([]byte("unit-test-secret"), "neurogate", time.Minute).Verify(token); err == nil {
		t.Error("token from a different issuer accepted")
	}
}
