package detection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/securitas/internal/datastore/entities"
)

// Flag is a boolean that also accepts the "Y"/"N" strings some engines emit.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid flag %s", data)
	}
	parsed, err := ParseFlag(s)
	if err != nil {
		return err
	}
	*f = Flag(parsed)
	return nil
}

// ParseFlag parses Y/N, yes/no and the forms accepted by strconv.ParseBool.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, nil
	case "n", "no", "":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid flag %q", s)
	}
	return b, nil
}

// IngestRequest is a detection event as delivered by an engine.
type IngestRequest struct {
	ID        string     `json:"id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	MonitorID string     `json:"monitor_id"`
	// Engine is the engine id. EngineID is accepted as an alias.
	Engine   string `json:"engine"`
	EngineID string `json:"engine_id,omitempty"`
	Zone     string `json:"zone,omitempty"`

	Status         string `json:"status,omitempty"`
	FeedbackStatus string `json:"feedback_status,omitempty"`
	Alert          *Flag  `json:"alert,omitempty"`
	Unread         *Flag  `json:"unread,omitempty"`

	District         string `json:"district,omitempty"`
	SuspectedOffense string `json:"suspected_offense,omitempty"`
	VehicleType      string `json:"vehicle_type,omitempty"`
	LicensePlate     string `json:"license_plate,omitempty"`

	Metadata entities.Metadata `json:"metadata,omitempty"`
	ImageURL string            `json:"image_url,omitempty"`
	VideoURL string            `json:"video_url,omitempty"`
}

func (r *IngestRequest) engineID() string {
	if r.Engine != "" {
		return r.Engine
	}
	return r.EngineID
}

// validate checks required fields and enumerations and returns the parsed
// lifecycle values, defaulting to PENDING and UNMARK.
func (r *IngestRequest) validate() (entities.DetectionStatus, entities.FeedbackStatus, error) {
	if strings.TrimSpace(r.MonitorID) == "" {
		return "", "", badRequest("monitor_id is required")
	}
	if strings.TrimSpace(r.engineID()) == "" {
		return "", "", badRequest("engine is required")
	}
	if r.engineID() == entities.ReservedEngineID {
		return "", "", badRequest("engine id %q is reserved", entities.ReservedEngineID)
	}

	status := entities.StatusPending
	if r.Status != "" {
		parsed, err := entities.ParseDetectionStatus(r.Status)
		if err != nil {
			return "", "", badRequest("%v", err)
		}
		status = parsed
	}
	feedback := entities.FeedbackUnmark
	if r.FeedbackStatus != "" {
		parsed, err := entities.ParseFeedbackStatus(r.FeedbackStatus)
		if err != nil {
			return "", "", badRequest("%v", err)
		}
		feedback = parsed
	}
	return status, feedback, nil
}

// Patch is a partial update. Nil fields are left unchanged. The approval
// state is not patchable; it changes only through the Gate.
type Patch struct {
	Status         *entities.DetectionStatus `json:"status,omitempty"`
	FeedbackStatus *entities.FeedbackStatus  `json:"feedback_status,omitempty"`
	Alert          *bool                     `json:"alert,omitempty"`
	Unread         *bool                     `json:"unread,omitempty"`
	Zone           *string                   `json:"zone,omitempty"`

	District         *string `json:"district,omitempty"`
	SuspectedOffense *string `json:"suspected_offense,omitempty"`
	VehicleType      *string `json:"vehicle_type,omitempty"`
	LicensePlate     *string `json:"license_plate,omitempty"`

	Metadata entities.Metadata `json:"metadata,omitempty"`
	ImageURL *string           `json:"image_url,omitempty"`
	VideoURL *string           `json:"video_url,omitempty"`
}

func (p *Patch) validate() error {
	if p.Status != nil {
		parsed, err := entities.ParseDetectionStatus(string(*p.Status))
		if err != nil {
			return badRequest("%v", err)
		}
		*p.Status = parsed
	}
	if p.FeedbackStatus != nil {
		parsed, err := entities.ParseFeedbackStatus(string(*p.FeedbackStatus))
		if err != nil {
			return badRequest("%v", err)
		}
		*p.FeedbackStatus = parsed
	}
	return nil
}

// apply merges p into det. Metadata keys are merged, not replaced.
func (p *Patch) apply(det *entities.Detection) {
	if p.Status != nil {
		det.Status = *p.Status
	}
	if p.FeedbackStatus != nil {
		det.FeedbackStatus = *p.FeedbackStatus
	}
	if p.Alert != nil {
		det.Alert = *p.Alert
	}
	if p.Unread != nil {
		det.Unread = *p.Unread
	}
	setString(&det.Zone, p.Zone)
	setString(&det.District, p.District)
	setString(&det.SuspectedOffense, p.SuspectedOffense)
	setString(&det.VehicleType, p.VehicleType)
	setString(&det.LicensePlate, p.LicensePlate)
	setString(&det.ImageURL, p.ImageURL)
	setString(&det.VideoURL, p.VideoURL)
	if len(p.Metadata) > 0 {
		if det.Metadata == nil {
			det.Metadata = make(entities.Metadata, len(p.Metadata))
		}
		maps.Copy(det.Metadata, p.Metadata)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
