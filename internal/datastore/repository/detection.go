package repository

import (
	"context"
	"time"

	"github.com/tphakala/securitas/internal/datastore/entities"
)

// DetectionRepository is the system of record for detections.
type DetectionRepository interface {
	// Create inserts a new detection. A detection with the same id yields a
	// conflict error wrapping ErrDuplicateDetection.
	Create(ctx context.Context, det *entities.Detection) error
	Get(ctx context.Context, id string) (*entities.Detection, error)
	// GetMany returns the detections that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []string) ([]*entities.Detection, error)
	// Save writes every field of det if its version still matches the stored
	// row, and increments det.Version. A stale version yields ErrVersionConflict.
	Save(ctx context.Context, det *entities.Detection) error
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, filter *DetectionFilter, limit, offset int) ([]*entities.Detection, int64, error)
	Search(ctx context.Context, filter *SearchFilter, limit, offset int) ([]*SearchResult, int64, error)
	// ListForMonitors returns detections of the given monitors with timestamp in
	// [from, to], oldest first.
	ListForMonitors(ctx context.Context, monitorIDs []string, from, to time.Time) ([]*entities.Detection, error)

	// Transaction runs fn with a repository bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx DetectionRepository) error) error
}
