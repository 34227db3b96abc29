package keys

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// keyPair is the published state of a KeyStore. It is never mutated after it
// has been stored; every change installs a new pair.
type keyPair struct {
	current  *SigningKey
	previous *SigningKey
}

// KeyStore holds the current signing key and at most one previous key.
// Readers load both slots with a single atomic read; Rotate and
// RetirePrevious are serialized by a writer lock.
type KeyStore struct {
	pair atomic.Pointer[keyPair]
	mu   sync.Mutex
}

// NewKeyStore creates a store from the initial key material. previous may be nil.
func NewKeyStore(current, previous *SigningKey) (*KeyStore, error) {
	if current == nil {
		return nil, ErrNoCurrentKey
	}
	if previous != nil {
		if previous.ID() == current.ID() {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, current.ID())
		}
		if previous.Algorithm() != current.Algorithm() {
			return nil, fmt.Errorf("%w: %s and %s", ErrAlgorithmMismatch, current, previous)
		}
	}

	ks := &KeyStore{}
	ks.pair.Store(&keyPair{current: current, previous: previous})
	return ks, nil
}

// Current returns the key new credentials are signed with
func (ks *KeyStore) Current() *SigningKey {
	return ks.pair.Load().current
}

// Previous returns the key retained from the last rotation, or nil
func (ks *KeyStore) Previous() *SigningKey {
	return ks.pair.Load().previous
}

// Snapshot returns both slots from one consistent view of the store
func (ks *KeyStore) Snapshot() (current, previous *SigningKey) {
	p := ks.pair.Load()
	return p.current, p.previous
}

// Rotate installs next as the current key and demotes the current key to
// previous. A key that was previous before the call is dropped, so at most two
// keys are ever valid for verification.
func (ks *KeyStore) Rotate(next *SigningKey) error {
	if next == nil {
		return ErrNoCurrentKey
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	old := ks.pair.Load()
	if next.ID() == old.current.ID() {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, next.ID())
	}
	if next.Algorithm() != old.current.Algorithm() {
		return fmt.Errorf("%w: %s and %s", ErrAlgorithmMismatch, old.current, next)
	}

	ks.pair.Store(&keyPair{current: next, previous: old.current})

	attrs := []any{"current", next.ID(), "previous", old.current.ID()}
	if old.previous != nil {
		attrs = append(attrs, "dropped", old.previous.ID())
	}
	slog.Info("Signing key rotated", attrs...)
	return nil
}

// RetirePrevious stops accepting credentials signed with the previous key.
// It never runs on a timer; an operator calls it after the grace window.
func (ks *KeyStore) RetirePrevious() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	old := ks.pair.Load()
	if old.previous == nil {
		return ErrNoPreviousKey
	}

	ks.pair.Store(&keyPair{current: old.current})
	slog.Info("Previous signing key retired", "retired", old.previous.ID(), "current", old.current.ID())
	return nil
}

// JWKS returns the public halves of the RS256 keys currently accepted.
// HMAC secrets are never published.
func (ks *KeyStore) JWKS() jwk.Set {
	set := jwk.NewSet()
	current, previous := ks.Snapshot()

	for _, k := range []*SigningKey{current, previous} {
		if k == nil || k.PublicRSA() == nil {
			continue
		}

		key, err := jwk.Import(k.PublicRSA())
		if err != nil {
			slog.Warn("Failed to convert public key to JWK", "kid", k.ID(), "error", err)
			continue
		}
		if err := key.Set(jwk.KeyIDKey, k.ID()); err != nil {
			continue
		}
		if err := key.Set(jwk.AlgorithmKey, k.Algorithm().JWA()); err != nil {
			continue
		}
		if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
			continue
		}
		if err := set.AddKey(key); err != nil {
			continue
		}
	}

	return set
}

// Status describes the store without exposing key material
type Status struct {
	Algorithm   Algorithm `json:"algorithm"`
	CurrentKID  string    `json:"current_kid"`
	PreviousKID string    `json:"previous_kid,omitempty"`
}

// Status returns the key IDs currently in each slot
func (ks *KeyStore) Status() Status {
	current, previous := ks.Snapshot()
	st := Status{Algorithm: current.Algorithm(), CurrentKID: current.ID()}
	if previous != nil {
		st.PreviousKID = previous.ID()
	}
	return st
}
