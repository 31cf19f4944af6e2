// Package auth guards mutating routes with a shared API key. Only a bcrypt
// hash of the key is configured; verified keys are cached by digest.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingKey = errors.New("missing api key")
	ErrInvalidKey = errors.New("invalid api key")
)

// GenerateKey returns a random API key.
func GenerateKey() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashKey hashes an API key using bcrypt.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", ErrMissingKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyKey verifies a key against a bcrypt hash.
func VerifyKey(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// Verifier checks presented keys against the configured hash.
type Verifier struct {
	hash  string
	cache *KeyCache
}

// NewVerifier returns a verifier for hash. Successful checks are remembered
// for cacheTTL.
func NewVerifier(hash string, cacheTTL time.Duration) (*Verifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("api key hash: %w", err)
	}
	return &Verifier{hash: hash, cache: NewKeyCache(cacheTTL)}, nil
}

// Verify returns nil when key matches.
func (v *Verifier) Verify(key string) error {
	if key == "" {
		return ErrMissingKey
	}
	d := digest(key)
	if v.cache.Get(d) {
		return nil
	}
	if !VerifyKey(key, v.hash) {
		return ErrInvalidKey
	}
	v.cache.Set(d)
	return nil
}

// Close stops the cache cleanup loop.
func (v *Verifier) Close() {
	v.cache.Close()
}

func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func equalDigest(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
