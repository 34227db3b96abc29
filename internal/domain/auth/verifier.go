package auth

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/Anvoria/authgate/internal/domain/keys"
	"github.com/Anvoria/authgate/internal/domain/session"
	"github.com/Anvoria/authgate/internal/domain/token"
)

// Recorder observes verification outcomes, typically for metrics. It is called
// on the request path and must not block; wrap recorders that do I/O in a
// Dispatcher.
type Recorder interface {
	Accepted(t token.Type)
	Rejected(r Reason, expected token.Type)
}

// Auditor persists accepted delegated identities. Like Recorder it is called
// inline by Verify, so persistent auditors belong behind a Dispatcher.
type Auditor interface {
	RecordDelegation(identity *VerifiedIdentity, fingerprint string) error
}

// Verifier decides whether a bearer credential is valid, for whom and under
// which delegated identity. It is safe for concurrent use.
type Verifier struct {
	keys     *keys.KeyStore
	policy   session.Policy
	now      func() time.Time
	leeway   time.Duration
	recorder Recorder
	auditor  Auditor
	logger   *slog.Logger
}

// Option configures a Verifier
type Option func(*Verifier)

// WithClock replaces the wall clock, for tests and replay tools
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLeeway tolerates clock skew on exp and nbf
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) { v.leeway = d }
}

// WithRecorder attaches an outcome recorder
func WithRecorder(r Recorder) Option {
	return func(v *Verifier) { v.recorder = r }
}

// WithAuditor attaches a delegation auditor
func WithAuditor(a Auditor) Option {
	return func(v *Verifier) { v.auditor = a }
}

// WithLogger replaces the default logger
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// NewVerifier creates a Verifier reading keys from ks
func NewVerifier(ks *keys.KeyStore, policy session.Policy, opts ...Option) *Verifier {
	v := &Verifier{
		keys:   ks,
		policy: policy,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks credential in a fixed order: signature (current key, then
// previous key), token type and delegation claims, then absolute session age.
// The first failing step decides the rejection. The returned error is always
// a *RejectionError.
func (v *Verifier) Verify(credential string, expected token.Type) (*VerifiedIdentity, error) {
	now := v.now()

	current, previous := v.keys.Snapshot()
	claims, err := token.Decode(credential, current, now, v.leeway)
	if errors.Is(err, token.ErrSignature) && previous != nil {
		claims, err = token.Decode(credential, previous, now, v.leeway)
	}
	if err != nil {
		return nil, v.reject(reasonFor(err), expected, credential)
	}

	typ, err := token.Classify(claims, expected)
	if err != nil {
		return nil, v.reject(reasonFor(err), expected, credential)
	}

	if v.policy.Expired(typ, claims.IssuedAt, now) {
		v.logger.Warn("Session timeout exceeded",
			"subject_id", claims.SubjectID,
			"token_type", typ,
			"key_id", claims.KeyID,
			"issued_at_present", claims.IssuedAt != nil,
			"session_age", session.Age(claims.IssuedAt, now),
			"max_session_duration", v.policy.MaxFor(typ),
		)
		return nil, v.reject(ReasonSessionTimeoutExceeded, expected, credential)
	}

	identity := newIdentity(claims, typ)
	v.accept(identity, credential)
	return identity, nil
}

func (v *Verifier) reject(r Reason, expected token.Type, credential string) error {
	v.logger.Warn("Credential rejected",
		"reason", r,
		"expected_type", expected,
		"fingerprint", Fingerprint(credential),
	)
	if v.recorder != nil {
		v.recorder.Rejected(r, expected)
	}
	return rejection(r)
}

func (v *Verifier) accept(id *VerifiedIdentity, credential string) {
	if v.recorder != nil {
		v.recorder.Accepted(id.TokenType)
	}

	switch {
	case id.TokenType == token.TypeActingAs && !id.Delegated():
		v.logger.Info("Acting-as credential re-asserts home role",
			"subject_id", id.SubjectID,
			"home_role", id.HomeRole,
		)
	case id.Delegated():
		v.logger.Info("Delegated credential accepted",
			"token_type", id.TokenType,
			"subject_id", id.SubjectID,
			"actor_id", id.ActorID,
			"target_id", id.TargetID,
			"home_role", id.HomeRole,
			"effective_role", id.EffectiveRole,
			"key_id", id.KeyID,
		)
	default:
		v.logger.Debug("Credential accepted",
			"token_type", id.TokenType,
			"subject_id", id.SubjectID,
			"key_id", id.KeyID,
		)
	}

	if v.auditor != nil && id.Delegated() {
		if err := v.auditor.RecordDelegation(id, Fingerprint(credential)); err != nil {
			v.logger.Error("Failed to record delegation audit", "subject_id", id.SubjectID, "error", err)
		}
	}
}

// Fingerprint identifies a credential in logs without revealing it
func Fingerprint(credential string) string {
	sum := blake2b.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}

// RecorderFunc adapts a pair of functions to Recorder
type RecorderFunc struct {
	OnAccepted func(t token.Type)
	OnRejected func(r Reason, expected token.Type)
}

func (f RecorderFunc) Accepted(t token.Type) {
	if f.OnAccepted != nil {
		f.OnAccepted(t)
	}
}

func (f RecorderFunc) Rejected(r Reason, expected token.Type) {
	if f.OnRejected != nil {
		f.OnRejected(r, expected)
	}
}

// MultiRecorder fans outcomes out to several recorders
type MultiRecorder []Recorder

func (m MultiRecorder) Accepted(t token.Type) {
	for _, r := range m {
		r.Accepted(t)
	}
}

func (m MultiRecorder) Rejected(r Reason, expected token.Type) {
	for _, rec := range m {
		rec.Rejected(r, expected)
	}
}
