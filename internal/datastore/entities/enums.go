package entities

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ApprovalState gates notification dispatch for a detection.
type ApprovalState string

const (
	ApprovalYes     ApprovalState = "yes"
	ApprovalNo      ApprovalState = "no"
	ApprovalExpired ApprovalState = "expired"
)

// Valid reports whether a is one of the known approval states.
func (a ApprovalState) Valid() bool {
	switch a {
	case ApprovalYes, ApprovalNo, ApprovalExpired:
		return true
	}
	return false
}

// Value implements driver.Valuer and refuses to persist unknown states.
func (a ApprovalState) Value() (driver.Value, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid approval state %q", string(a))
	}
	return string(a), nil
}

// Scan implements sql.Scanner.
func (a *ApprovalState) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseApprovalState(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseApprovalState parses an approval state case-insensitively.
func ParseApprovalState(s string) (ApprovalState, error) {
	a := ApprovalState(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("invalid approval state %q", s)
	}
	return a, nil
}

// DetectionStatus is the processing lifecycle of a detection.
type DetectionStatus string

const (
	StatusPending   DetectionStatus = "PENDING"
	StatusApproved  DetectionStatus = "APPROVED"
	StatusRejected  DetectionStatus = "REJECTED"
	StatusCompleted DetectionStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s DetectionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Value implements driver.Valuer and refuses to persist unknown statuses.
func (s DetectionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid detection status %q", string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *DetectionStatus) Scan(src any) error {
	str, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseDetectionStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseDetectionStatus parses a status case-insensitively.
func ParseDetectionStatus(s string) (DetectionStatus, error) {
	status := DetectionStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid detection status %q", s)
	}
	return status, nil
}

// FeedbackStatus is the human review verdict, independent of ApprovalState.
type FeedbackStatus string

const (
	FeedbackUnmark   FeedbackStatus = "UNMARK"
	FeedbackApproved FeedbackStatus = "APPROVED"
	FeedbackRejected FeedbackStatus = "REJECTED"
)

// Valid reports whether f is one of the known feedback values.
func (f FeedbackStatus) Valid() bool {
	switch f {
	case FeedbackUnmark, FeedbackApproved, FeedbackRejected:
		return true
	}
	return false
}

// Value implements driver.Valuer and refuses to persist unknown values.
func (f FeedbackStatus) Value() (driver.Value, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid feedback status %q", string(f))
	}
	return string(f), nil
}

// Scan implements sql.Scanner.
func (f *FeedbackStatus) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseFeedbackStatus(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFeedbackStatus parses a feedback status case-insensitively.
func ParseFeedbackStatus(s string) (FeedbackStatus, error) {
	f := FeedbackStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("invalid feedback status %q", s)
	}
	return f, nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into enum", src)
	}
}
