package session

import (
	"fmt"
	"time"

	"github.com/Anvoria/authgate/internal/config"
	"github.com/Anvoria/authgate/internal/domain/token"
)

// IsExpired reports whether a session that started at issuedAt is older than max at now.
// A missing issuedAt is always expired.
func IsExpired(issuedAt *time.Time, max time.Duration, now time.Time) bool {
	if issuedAt == nil {
		return true
	}
	return now.Sub(*issuedAt) > max
}

// Policy is the absolute session lifetime. The lifetime comes from
// configuration only; no claim in a credential can extend it.
type Policy struct {
	Default time.Duration
	PerType map[token.Type]time.Duration
	// Leeway is how far in the future issued_at may be before it is treated as forged
	Leeway time.Duration
}

// NewPolicy returns a uniform policy
func NewPolicy(max time.Duration) Policy {
	return Policy{Default: max}
}

// PolicyFromConfig builds a policy from session configuration
func PolicyFromConfig(cfg config.SessionConfig, leeway time.Duration) (Policy, error) {
	if err := config.ValidHours(cfg.TimeoutHours); err != nil {
		return Policy{}, fmt.Errorf("session timeout %w", err)
	}
	p := Policy{Default: cfg.MaxDuration(), Leeway: leeway}

	for name, hours := range cfg.TypeTimeoutHours {
		t, ok := token.ParseType(name)
		if !ok {
			return Policy{}, fmt.Errorf("unknown token type %q in session.type_timeout_hours", name)
		}
		if err := config.ValidHours(hours); err != nil {
			return Policy{}, fmt.Errorf("session timeout for %s %w", name, err)
		}
		d := config.HoursToDuration(hours)
		if p.PerType == nil {
			p.PerType = make(map[token.Type]time.Duration)
		}
		p.PerType[t] = d
	}
	return p, nil
}

// MaxFor returns the lifetime that applies to a token type
func (p Policy) MaxFor(t token.Type) time.Duration {
	if d, ok := p.PerType[t]; ok {
		return d
	}
	return p.Default
}

// Expired applies IsExpired with the lifetime for t. An issued_at further in
// the future than Leeway also counts as expired.
func (p Policy) Expired(t token.Type, issuedAt *time.Time, now time.Time) bool {
	if issuedAt != nil && issuedAt.After(now.Add(p.Leeway)) {
		return true
	}
	return IsExpired(issuedAt, p.MaxFor(t), now)
}

// Age returns how old a session is, or 0 when issuedAt is missing
func Age(issuedAt *time.Time, now time.Time) time.Duration {
	if issuedAt == nil {
		return 0
	}
	return now.Sub(*issuedAt)
}
