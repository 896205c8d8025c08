package conf

import (
	"fmt"

	"github.com/tphakala/securitas/internal/secrets"
)

// resolveSecrets replaces every credential with its resolved value: the
// companion *File setting wins, otherwise ${VAR} references are expanded.
func resolveSecrets(settings *Settings) error {
	fields := []struct {
		name  string
		file  string
		value *string
	}{
		{"notification.telegram.token", settings.Notification.Telegram.TokenFile, &settings.Notification.Telegram.Token},
		{"database.mysql.password", settings.Database.MySQL.PasswordFile, &settings.Database.MySQL.Password},
		{"ingest.mqtt.password", settings.Ingest.MQTT.PasswordFile, &settings.Ingest.MQTT.Password},
		{"sentry.dsn", settings.Sentry.DSNFile, &settings.Sentry.DSN},
	}
	for _, f := range fields {
		resolved, err := secrets.Resolve(f.file, *f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = resolved
	}
	return nil
}
