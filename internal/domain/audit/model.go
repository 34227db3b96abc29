package audit

import (
	"time"

	"github.com/Anvoria/authgate/internal/database"
)

// DelegationAudit records one masquerade or acting_as credential. A credential
// seen again bumps LastSeenAt and Sightings on its existing row.
type DelegationAudit struct {
	database.BaseModel

	TokenType     string    `gorm:"column:token_type;not null;index"`
	SubjectID     string    `gorm:"column:subject_id;not null;index"`
	ActorID       string    `gorm:"column:actor_id;index"`
	TargetID      string    `gorm:"column:target_id"`
	HomeRole      string    `gorm:"column:home_role"`
	EffectiveRole string    `gorm:"column:effective_role"`
	SessionID     string    `gorm:"column:session_id"`
	KeyID         string    `gorm:"column:key_id"`
	Fingerprint   string    `gorm:"column:fingerprint;not null;uniqueIndex"`
	VerifiedAt    time.Time `gorm:"column:verified_at;not null"`
	LastSeenAt    time.Time `gorm:"column:last_seen_at;not null;index"`
	Sightings     int       `gorm:"column:sightings;not null;default:1"`
}

func (DelegationAudit) TableName() string {
	return "delegation_audits"
}

// DelegationAuditResponse is the API view of a DelegationAudit
type DelegationAuditResponse struct {
	ID            string    `json:"id"`
	TokenType     string    `json:"token_type"`
	SubjectID     string    `json:"subject_id"`
	ActorID       string    `json:"actor_id,omitempty"`
	TargetID      string    `json:"target_id,omitempty"`
	HomeRole      string    `json:"home_role,omitempty"`
	EffectiveRole string    `json:"effective_role,omitempty"`
	Fingerprint   string    `json:"fingerprint"`
	VerifiedAt    time.Time `json:"verified_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	Sightings     int       `json:"sightings"`
}

// ToResponse converts a DelegationAudit to its API view
func (a *DelegationAudit) ToResponse() *DelegationAuditResponse {
	return &DelegationAuditResponse{
		ID:            a.ID.String(),
		TokenType:     a.TokenType,
		SubjectID:     a.SubjectID,
		ActorID:       a.ActorID,
		TargetID:      a.TargetID,
		HomeRole:      a.HomeRole,
		EffectiveRole: a.EffectiveRole,
		Fingerprint:   a.Fingerprint,
		VerifiedAt:    a.VerifiedAt,
		LastSeenAt:    a.LastSeenAt,
		Sightings:     a.Sightings,
	}
}

// Filter narrows a listing of audit records
type Filter struct {
	SubjectID string
	ActorID   string
	TokenType string
	Limit     int
}
