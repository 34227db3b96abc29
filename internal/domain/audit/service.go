package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Anvoria/authgate/internal/domain/auth"
	"github.com/Anvoria/authgate/internal/domain/token"
)

var (
	// ErrNotDelegated is returned when a non-delegated identity is offered for auditing
	ErrNotDelegated = errors.New("identity is not delegated")
	// ErrInvalidFilter is returned when a listing filter names a non-delegated token type
	ErrInvalidFilter = errors.New("invalid audit filter")
)

// recordTimeout bounds a single audit write
const recordTimeout = 5 * time.Second

// Service interface for delegation audit operations
type Service interface {
	auth.Auditor
	List(filter Filter) ([]*DelegationAuditResponse, error)
}

// service struct for delegation audit operations
type service struct {
	repo    Repository
	now     func() time.Time
	timeout time.Duration
}

// NewService creates a new delegation audit service
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now, timeout: recordTimeout}
}

// RecordDelegation persists an accepted delegated identity, one row per
// credential fingerprint
func (s *service) RecordDelegation(identity *auth.VerifiedIdentity, fingerprint string) error {
	if identity == nil || !identity.Delegated() {
		return ErrNotDelegated
	}

	now := s.now().UTC()
	record := &DelegationAudit{
		TokenType:     identity.TokenType.String(),
		SubjectID:     identity.SubjectID,
		ActorID:       identity.ActorID,
		TargetID:      identity.TargetID,
		HomeRole:      identity.HomeRole,
		EffectiveRole: identity.EffectiveRole,
		SessionID:     identity.SessionID,
		KeyID:         identity.KeyID,
		Fingerprint:   fingerprint,
		VerifiedAt:    now,
		LastSeenAt:    now,
		Sightings:     1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.repo.Record(ctx, record); err != nil {
		return fmt.Errorf("failed to record delegation: %w", err)
	}
	return nil
}

// List returns audit records matching filter, newest first
func (s *service) List(filter Filter) ([]*DelegationAuditResponse, error) {
	if filter.TokenType != "" {
		t, ok := token.ParseType(filter.TokenType)
		if !ok || !t.Delegated() {
			return nil, fmt.Errorf("%w: token type %q is not a delegated type", ErrInvalidFilter, filter.TokenType)
		}
	}

	records, err := s.repo.List(filter)
	if err != nil {
		return nil, err
	}

	res := make([]*DelegationAuditResponse, 0, len(records))
	for i := range records {
		res = append(res, records[i].ToResponse())
	}
	return res, nil
}
