package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/go-sql-driver/mysql"
	"github.com/tphakala/securitas/internal/errors"
)

// Sentinel errors for repository operations.
var (
	// ErrDetectionNotFound indicates the requested detection does not exist.
	ErrDetectionNotFound = errors.NewStd("detection not found")

	// ErrMonitorNotFound indicates the requested monitor does not exist.
	ErrMonitorNotFound = errors.NewStd("monitor not found")

	// ErrEngineNotFound indicates the requested engine does not exist.
	ErrEngineNotFound = errors.NewStd("engine not found")

	// ErrCompanyNotFound indicates no company has the requested company code.
	ErrCompanyNotFound = errors.NewStd("company not found")

	// ErrNotificationSettingsNotFound indicates the company has no notification settings row.
	ErrNotificationSettingsNotFound = errors.NewStd("notification settings not found")

	// ErrDuplicateDetection indicates a detection with the same id is already stored.
	ErrDuplicateDetection = errors.NewStd("detection already exists")

	// ErrVersionConflict indicates the detection changed since it was loaded.
	ErrVersionConflict = errors.NewStd("detection was modified concurrently")
)

const component = "datastore"

// mysqlDuplicateEntry is the MySQL server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// IsDuplicateKeyError reports whether err is a unique or primary key violation
// from any supported backend.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateDetection) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// notFoundError wraps a sentinel with the identifier that was looked up.
func notFoundError(sentinel error, resource, identifier string) error {
	return errors.New(fmt.Errorf("%w: %s", sentinel, identifier)).
		Component(component).
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}

// conflictError wraps a sentinel for an internal conflict outcome.
func conflictError(sentinel error, id string) error {
	return errors.New(fmt.Errorf("%w: %s", sentinel, id)).
		Component(component).
		Category(errors.CategoryConflict).
		Context("detection_id", id).
		Build()
}

// dbError creates a categorized database error with context pairs.
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component(component).
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}
	return builder.Build()
}
