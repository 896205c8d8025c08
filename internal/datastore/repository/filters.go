package repository

import (
	"time"

	"github.com/tphakala/securitas/internal/datastore/entities"
)

// DetectionFilter enumerates every predicate supported by List.
// Zero values mean "no constraint".
type DetectionFilter struct {
	MonitorID      string
	EngineID       string
	Status         *entities.DetectionStatus
	FeedbackStatus *entities.FeedbackStatus
	Approved       *entities.ApprovalState
	Alert          *bool
	Unread         *bool
	From           *time.Time // inclusive
	To             *time.Time // inclusive

	District         string
	SuspectedOffense string
	VehicleType      string
	LicensePlate     string // substring
}

// SearchFilter extends DetectionFilter with predicates over the joined
// monitor and company tables. Text fields match substrings.
type SearchFilter struct {
	DetectionFilter

	Query       string // matches detection id, monitor name or company name
	DetectionID string // exact
	MonitorName string
	CompanyCode string // exact
	CompanyName string
}

// SearchResult is a detection joined with its monitor and company display fields.
type SearchResult struct {
	entities.Detection `gorm:"embedded"`

	MonitorName string `gorm:"column:monitor_name" json:"monitor_name"`
	CompanyCode string `gorm:"column:company_code" json:"company_code"`
	CompanyName string `gorm:"column:company_name" json:"company_name"`
}
