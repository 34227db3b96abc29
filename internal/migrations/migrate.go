package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Anvoria/authgate/internal/domain/audit"
)

// Models lists every table the service owns
func Models() []any {
	return []any{&audit.DelegationAudit{}}
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("failed to make migrations: no database connection")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to make migrations: %w", err)
	}
	return nil
}
