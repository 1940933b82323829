package ledger

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keySize is the signing key width in bytes (256 bits).
const keySize = 32

// Signer produces and checks the keyed authentication tag on ledger entries.
// The key is bound 1:1 to one ledger file; losing it makes all prior
// signatures unverifiable. There is no rotation.
type Signer struct {
	key []byte
}

// NewSigner wraps an existing key. The key must be keySize bytes.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("ledger: signing key must be %d bytes, got %d", keySize, len(key))
	}
	k := make([]byte, keySize)
	copy(k, key)
	return &Signer{key: k}, nil
}

// LoadOrCreateSigner loads the hex-encoded key at path, or generates a fresh
// random key and persists it with owner-only permissions on first use.
func LoadOrCreateSigner(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil {
			return nil, fmt.Errorf("ledger: key file %s is not valid hex: %w", path, decErr)
		}
		return NewSigner(key)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("ledger: read key file: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("ledger: generate signing key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("ledger: write key file: %w", err)
	}

	return NewSigner(key)
}

// Sign returns the hex HMAC-SHA256 tag over sequence|id|hash|prevHash.
func (s *Signer) Sign(sequence int64, id, hash, prevHash string) string {
	mac := hmac.New(sha256.New, s.key)
	fmt.Fprintf(mac, "%d|%s|%s|%s", sequence, id, hash, prevHash)
	return hex.EncodeToString(mac.Sum(nil))
}

// Check reports whether the entry's signature was produced by this key.
func (s *Signer) Check(e Entry) bool {
	expected := s.Sign(e.Sequence, e.ID, e.Hash, e.PrevHash)
	return hmac.Equal([]byte(expected), []byte(e.Signature))
}
