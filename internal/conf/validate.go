// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/securitas/internal/timezone"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateDatabaseSettings,
		validateWebServerSettings,
		validateMQTTSettings,
		validateNotificationSettings,
		validateStatisticsSettings,
		validatePaginationSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(settings *Settings) error {
	db := &settings.Database
	switch db.Type {
	case DatabaseSQLite:
		if db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case DatabaseMySQL:
		if db.MySQL.Host == "" || db.MySQL.Database == "" || db.MySQL.Username == "" {
			return fmt.Errorf("database.mysql requires host, database and username")
		}
	default:
		return fmt.Errorf("unsupported database type %q", db.Type)
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	ws := &settings.WebServer
	if !ws.Enabled {
		return nil
	}
	if err := validateEnvPort(ws.Port); err != nil {
		return fmt.Errorf("webserver.port: %w", err)
	}
	if ws.Prefix != "" && !strings.HasPrefix(ws.Prefix, "/") {
		return fmt.Errorf("webserver.prefix must start with '/'")
	}
	return nil
}

func validateMQTTSettings(settings *Settings) error {
	mqtt := &settings.Ingest.MQTT
	if !mqtt.Enabled {
		return nil
	}
	if mqtt.Broker == "" || mqtt.Topic == "" {
		return fmt.Errorf("ingest.mqtt requires broker and topic")
	}
	if mqtt.QoS < 0 || mqtt.QoS > 2 {
		return fmt.Errorf("ingest.mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

func validateNotificationSettings(settings *Settings) error {
	n := &settings.Notification
	if !n.Enabled {
		return nil
	}
	switch n.Transport {
	case TransportTelegram:
		if n.Telegram.Token == "" {
			return fmt.Errorf("notification.telegram.token is required for the telegram transport")
		}
		if n.Telegram.RateLimit <= 0 {
			return fmt.Errorf("notification.telegram.ratelimit must be positive")
		}
	case TransportShoutrrr:
		if !strings.Contains(n.Shoutrrr.URLTemplate, ChannelPlaceholder) {
			return fmt.Errorf("notification.shoutrrr.urltemplate must contain %s", ChannelPlaceholder)
		}
	default:
		return fmt.Errorf("unsupported notification transport %q", n.Transport)
	}
	if n.MaxAttempts < 1 {
		return fmt.Errorf("notification.maxattempts must be at least 1")
	}
	if n.RequestTimeout <= 0 || n.DispatchTimeout <= 0 {
		return fmt.Errorf("notification timeouts must be positive")
	}
	return nil
}

func validateStatisticsSettings(settings *Settings) error {
	if settings.Statistics.MaxBuckets < 1 {
		return fmt.Errorf("statistics.maxbuckets must be at least 1")
	}
	if tz := settings.Statistics.DefaultTimezone; tz != "" {
		if _, err := timezone.Parse(tz); err != nil {
			return fmt.Errorf("statistics.defaulttimezone: %w", err)
		}
	}
	return nil
}

func validatePaginationSettings(settings *Settings) error {
	p := &settings.Pagination
	if p.DefaultLimit < 1 || p.MaxLimit < p.DefaultLimit {
		return fmt.Errorf("pagination requires 1 <= defaultlimit <= maxlimit")
	}
	return nil
}
