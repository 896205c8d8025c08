// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicit environment variable bindings. Every other
// key is reachable through the SECURITAS_ prefix, e.g. SECURITAS_DATABASE_TYPE.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"webserver.port", "PORT", validateEnvPort},
		{"webserver.prefix", "API_PREFIX", validateEnvPrefix},

		{"notification.telegram.token", "TELEGRAM_BOT_TOKEN", nil},
		{"notification.telegram.tokenfile", "TELEGRAM_BOT_TOKEN_FILE", nil},

		{"database.type", "DB_TYPE", validateEnvDatabaseType},
		{"database.mysql.host", "DB_HOST", nil},
		{"database.mysql.port", "DB_PORT", validateEnvPort},
		{"database.mysql.username", "DB_USERNAME", nil},
		{"database.mysql.password", "DB_PASSWORD", nil},
		{"database.mysql.passwordfile", "DB_PASSWORD_FILE", nil},
		{"database.mysql.database", "DB_DATABASE", nil},

		{"ingest.mqtt.broker", "MQTT_BROKER", validateEnvURL},

		{"sentry.dsn", "SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}

func validateEnvPrefix(value string) error {
	if !strings.HasPrefix(value, "/") {
		return fmt.Errorf("must start with '/'")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case DatabaseSQLite, DatabaseMySQL:
		return nil
	}
	return fmt.Errorf("must be %q or %q", DatabaseSQLite, DatabaseMySQL)
}

func validateEnvURL(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}
