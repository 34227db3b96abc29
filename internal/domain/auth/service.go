package auth

import (
	"fmt"
	"log/slog"

	"github.com/Anvoria/authgate/internal/domain/keys"
)

// KeyService performs administrator-triggered key operations. Request
// traffic never reaches it.
type KeyService interface {
	Status() keys.Status
	Rotate(kid string) (keys.Status, error)
	RetirePrevious() (keys.Status, error)
}

// Service rotates keys by loading new material from the keys directory
type Service struct {
	KeyStore  *keys.KeyStore
	keysPath  string
	algorithm keys.Algorithm
}

// NewService creates a key administration service
func NewService(ks *keys.KeyStore, keysPath string) *Service {
	return &Service{
		KeyStore:  ks,
		keysPath:  keysPath,
		algorithm: ks.Current().Algorithm(),
	}
}

// Status reports which keys are in each slot
func (s *Service) Status() keys.Status {
	return s.KeyStore.Status()
}

// Rotate loads kid from disk and makes it the current key
func (s *Service) Rotate(kid string) (keys.Status, error) {
	next, err := keys.LoadKey(s.keysPath, s.algorithm, kid)
	if err != nil {
		return s.Status(), fmt.Errorf("failed to load key %s: %w", kid, err)
	}
	if !next.CanSign() {
		slog.Warn("Rotated to a verify-only key; this process cannot mint with it", "kid", kid)
	}
	if err := s.KeyStore.Rotate(next); err != nil {
		return s.Status(), err
	}
	return s.Status(), nil
}

// RetirePrevious drops the previous key
func (s *Service) RetirePrevious() (keys.Status, error) {
	if err := s.KeyStore.RetirePrevious(); err != nil {
		return s.Status(), err
	}
	return s.Status(), nil
}
