package entities

import (
	"time"

	"gorm.io/gorm"
)

// Metadata is the open key/value bag attached to a detection by its engine.
type Metadata map[string]any

// Detection is one event instance produced by an engine on a monitor.
// Timestamp is the event time reported by the engine, not the insertion time.
type Detection struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Timestamp time.Time `gorm:"not null;index;index:idx_detections_monitor_time,priority:2" json:"timestamp"`
	MonitorID string    `gorm:"type:varchar(64);not null;index:idx_detections_monitor_time,priority:1" json:"monitor_id"`
	EngineID  string    `gorm:"type:varchar(64);not null;index" json:"engine_id"`
	Zone      string    `gorm:"type:varchar(255)" json:"zone,omitempty"`

	Status         DetectionStatus `gorm:"type:varchar(16);not null;check:chk_detections_status,status IN ('PENDING','APPROVED','REJECTED','COMPLETED')" json:"status"`
	FeedbackStatus FeedbackStatus  `gorm:"type:varchar(16);not null;check:chk_detections_feedback,feedback_status IN ('UNMARK','APPROVED','REJECTED')" json:"feedback_status"`
	Approved       ApprovalState   `gorm:"type:varchar(16);not null;index;check:chk_detections_approved,approved IN ('yes','no','expired')" json:"approved"`
	ApprovedBy     *string         `gorm:"type:varchar(64)" json:"approved_by"`

	Alert  bool `gorm:"not null" json:"alert"`
	Unread bool `gorm:"not null" json:"unread"`

	District         string `gorm:"type:varchar(255)" json:"district,omitempty"`
	SuspectedOffense string `gorm:"type:varchar(255)" json:"suspected_offense,omitempty"`
	VehicleType      string `gorm:"type:varchar(64)" json:"vehicle_type,omitempty"`
	LicensePlate     string `gorm:"type:varchar(32);index" json:"license_plate,omitempty"`

	Metadata Metadata `gorm:"serializer:json" json:"metadata,omitempty"`
	ImageURL string   `gorm:"type:varchar(1024)" json:"image_url,omitempty"`
	VideoURL string   `gorm:"type:varchar(1024)" json:"video_url,omitempty"`

	// Version is the optimistic concurrency token; every successful update increments it.
	Version uint `gorm:"not null" json:"version"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Detection) TableName() string {
	return "detections"
}

// BeforeSave normalizes the event time to UTC so that range comparisons are
// consistent regardless of the offset the engine reported.
func (d *Detection) BeforeSave(*gorm.DB) error {
	d.Timestamp = d.Timestamp.UTC()
	return nil
}

// HasMedia reports whether the detection references an image or a video.
func (d *Detection) HasMedia() bool {
	return d.ImageURL != "" || d.VideoURL != ""
}
