package baseline

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts fingerprints before they leave process memory. The key is
// derived from a master secret with Argon2id so a weak configured secret
// still costs an attacker memory-hard work.
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from secret. The salt is fixed per
// deployment scope; rotating the secret invalidates stored fingerprints,
// which is acceptable because baselines retrain.
func NewSealer(secret string) *Sealer {
	key := argon2.IDKey([]byte(secret), []byte("neurogate-baseline-v1"), 1, 64*1024, 4, chacha20poly1305.KeySize)
	return &Sealer{key: key}
}

// Seal encrypts plaintext with ChaCha20-Poly1305, prefixing the random
// nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("sealer init: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("sealer nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a sealed payload produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("sealer init: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed payload too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("unseal: %w", err)
	}
	return plaintext, nil
}
