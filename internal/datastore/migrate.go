package datastore

import (
	"gorm.io/gorm"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/errors"
)

// Models lists every table owned by the store, in creation order.
func Models() []any {
	return []any{
		&entities.Company{},
		&entities.Monitor{},
		&entities.Engine{},
		&entities.NotificationSetting{},
		&entities.Detection{},
	}
}

// Migrate creates missing tables, columns and indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}
	return nil
}
