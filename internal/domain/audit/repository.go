package audit

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultLimit is the page size used when a filter sets none
	DefaultLimit = 50
	// MaxLimit caps the page size of a listing
	MaxLimit = 500
)

// Repository interface for delegation audit operations
type Repository interface {
	Record(ctx context.Context, record *DelegationAudit) error
	List(filter Filter) ([]DelegationAudit, error)
}

// repository struct for delegation audit operations
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new delegation audit repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Record inserts record, or on a fingerprint already present bumps that
// row's last_seen_at and sightings
func (r *repository) Record(ctx context.Context, record *DelegationAudit) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen_at": record.LastSeenAt,
			"sightings":    gorm.Expr("delegation_audits.sightings + 1"),
		}),
	}).Create(record).Error
}

// List returns the most recent records matching filter
func (r *repository) List(filter Filter) ([]DelegationAudit, error) {
	q := r.db.Model(&DelegationAudit{})
	if filter.SubjectID != "" {
		q = q.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TokenType != "" {
		q = q.Where("token_type = ?", filter.TokenType)
	}

	var records []DelegationAudit
	if err := q.Order("last_seen_at DESC").Limit(clampLimit(filter.Limit)).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
