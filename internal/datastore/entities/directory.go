package entities

import "time"

// Monitor is a camera or sensor owned by a company.
type Monitor struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CompanyCode string `gorm:"type:varchar(64);not null;index" json:"company_code"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`

	// Engines and EnginesRequireApproval hold JSON encoded lists of engine ids.
	Engines                string  `gorm:"type:text" json:"engines,omitempty"`
	EnginesRequireApproval *string `gorm:"type:text" json:"engines_require_approval"`

	// Connectivity metadata reported by the monitor agent.
	IPAddress  string     `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	Online     bool       `json:"online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Monitor) TableName() string {
	return "monitors"
}

// ReservedEngineID cannot identify an engine. Statistics rows use it as the
// key of the bucket label.
const ReservedEngineID = "timestamp"

// Engine is an analytics pipeline producing detections.
type Engine struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Type        string `gorm:"type:varchar(64)" json:"type,omitempty"`
	Version     string `gorm:"type:varchar(32)" json:"version,omitempty"`
	Icon        string `gorm:"type:varchar(255)" json:"icon,omitempty"`
	Color       string `gorm:"type:varchar(32)" json:"color,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Engine) TableName() string {
	return "engines"
}

// CompanyLocale holds per-company presentation preferences.
type CompanyLocale struct {
	Timezone string `json:"timezone,omitempty"`
	Language string `json:"language,omitempty"`
}

// Company is a tenant of the platform.
type Company struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CompanyCode string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"company_code"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Locale      CompanyLocale `gorm:"serializer:json" json:"locale"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Company) TableName() string {
	return "companies"
}

// NotificationSetting is the alert channel configuration of a company.
type NotificationSetting struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	CompanyCode     string  `gorm:"type:varchar(64);not null;uniqueIndex" json:"company_code"`
	TelegramGroupID *string `gorm:"type:varchar(64)" json:"telegram_group_id"`
	ZaloGroupID     *string `gorm:"type:varchar(64)" json:"zalo_group_id"`
	TelegramEnabled bool    `json:"telegram_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (NotificationSetting) TableName() string {
	return "company_notification_settings"
}

// ChannelID returns the configured group id, or "" when the company has not
// opted in. The enabled flag is advisory; a configured group id is enough.
func (s *NotificationSetting) ChannelID() string {
	if s == nil || s.TelegramGroupID == nil {
		return ""
	}
	return *s.TelegramGroupID
}
