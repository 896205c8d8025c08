package detection

import (
	"fmt"
	"strings"

	"github.com/tphakala/securitas/internal/errors"
)

const component = "detection"

// MissingIDsError lists the requested detection ids that do not exist.
type MissingIDsError struct {
	IDs []string
}

func (e *MissingIDsError) Error() string {
	return "detections not found: " + strings.Join(e.IDs, ", ")
}

// AlreadyResolvedError reports detections that left the pending approval
// state before the requested transition.
type AlreadyResolvedError struct {
	IDs      []string
	Approved int // already YES
	Expired  int // already EXPIRED
}

func (e *AlreadyResolvedError) Error() string {
	switch {
	case e.Expired == 0:
		return fmt.Sprintf("%d detection(s) already approved", e.Approved)
	case e.Approved == 0:
		return fmt.Sprintf("%d detection(s) already expired", e.Expired)
	default:
		return fmt.Sprintf("%d detection(s) already approved and %d already expired", e.Approved, e.Expired)
	}
}

func missingIDs(ids []string) error {
	return errors.New(&MissingIDsError{IDs: ids}).
		Component(component).
		Category(errors.CategoryNotFound).
		Context("missing_count", len(ids)).
		Build()
}

func alreadyResolved(resolved *AlreadyResolvedError) error {
	return errors.New(resolved).
		Component(component).
		Category(errors.CategoryValidation).
		Context("approved_count", resolved.Approved).
		Context("expired_count", resolved.Expired).
		Build()
}

func badRequest(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component(component).
		Category(errors.CategoryValidation).
		Build()
}
