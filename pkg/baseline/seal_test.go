package baseline

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s := NewSealer("unit-test-secret")
	plain := []byte(`{"userId":"alice","sampleCount":3}`)

	sealed, err := s.Seal(plain)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("alice")) {
		t.Error("sealed payload leaks plaintext")
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Errorf("round trip mismatch: %q vs %q", opened, plain)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	s := NewSealer("unit-test-secret")
	sealed, err := s.Seal([]byte("fingerprint"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := s.Open(sealed); err == nil {
		t.Error("tampered ciphertext accepted")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealed, err := NewSealer("key-one").Seal([]byte("fingerprint"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := NewSealer("key-two").Open(sealed); err == nil {
		t.Error("ciphertext opened under a different key")
	}
}

func TestOpenRejectsTruncated(t *testing.T) {
	s := NewSealer("unit-test-secret")
	if _, err := s.Open([]byte("short")); err == nil {
		t.Error("truncated payload accepted")
	}
}
