package keys

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
)

// Algorithm names a supported signing algorithm
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	RS256 Algorithm = "RS256"
)

// MinSecretLength is the shortest HMAC secret accepted, in bytes
const MinSecretLength = 32

// ParseAlgorithm normalizes an algorithm name from configuration
func ParseAlgorithm(s string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToUpper(strings.TrimSpace(s))); alg {
	case HS256, RS256:
		return alg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// JWA returns the jwx algorithm value used when signing and verifying
func (a Algorithm) JWA() jwa.SignatureAlgorithm {
	if a == RS256 {
		return jwa.RS256()
	}
	return jwa.HS256()
}

// SigningKey is one slot of signing key material.
// Values are immutable after construction and safe to share between goroutines.
type SigningKey struct {
	id        string
	alg       Algorithm
	signer    any
	verifier  any
	publicRSA *rsa.PublicKey
}

// NewHMACKey builds an HS256 key from a shared secret
func NewHMACKey(id string, secret []byte) (*SigningKey, error) {
	if id == "" {
		return nil, errors.New("key id is required")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: key %s has %d bytes, need %d", ErrSecretTooShort, id, len(secret), MinSecretLength)
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &SigningKey{id: id, alg: HS256, signer: s, verifier: s}, nil
}

// NewRSAKey builds an RS256 key able to sign and verify
func NewRSAKey(id string, priv *rsa.PrivateKey) (*SigningKey, error) {
	if id == "" {
		return nil, errors.New("key id is required")
	}
	if priv == nil {
		return nil, errors.New("rsa private key is required")
	}
	return &SigningKey{id: id, alg: RS256, signer: priv, verifier: &priv.PublicKey, publicRSA: &priv.PublicKey}, nil
}

// NewRSAPublicKey builds a verify-only RS256 key
func NewRSAPublicKey(id string, pub *rsa.PublicKey) (*SigningKey, error) {
	if id == "" {
		return nil, errors.New("key id is required")
	}
	if pub == nil {
		return nil, errors.New("rsa public key is required")
	}
	return &SigningKey{id: id, alg: RS256, verifier: pub, publicRSA: pub}, nil
}

// ID returns the key identifier
func (k *SigningKey) ID() string { return k.id }

// Algorithm returns the signing algorithm of the key
func (k *SigningKey) Algorithm() Algorithm { return k.alg }

// VerificationKey returns the raw key used to check signatures
func (k *SigningKey) VerificationKey() any { return k.verifier }

// SigningMaterial returns the raw key used to sign, or nil for verify-only keys
func (k *SigningKey) SigningMaterial() any { return k.signer }

// CanSign reports whether the key holds private material
func (k *SigningKey) CanSign() bool { return k.signer != nil }

// PublicRSA returns the RSA public key, or nil for HMAC keys
func (k *SigningKey) PublicRSA() *rsa.PublicKey { return k.publicRSA }

// String never includes key material
func (k *SigningKey) String() string {
	return fmt.Sprintf("%s(%s)", k.id, k.alg)
}
