// config.go: settings struct for securitas and functions to load and save it.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/securitas/internal/logger"
)

// MainSettings contains process-wide identity settings.
type MainSettings struct {
	Name string // instance name, used as MQTT client id prefix and user agent
}

// SQLiteSettings contains settings for the embedded SQLite store.
type SQLiteSettings struct {
	Path string // path to the SQLite database file
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Username     string
	Password     string
	PasswordFile string // read the password from this file instead
	Database     string
	Host     string
	Port     string
}

// DatabaseSettings selects and configures the detection store.
type DatabaseSettings struct {
	Type               string        // "sqlite" or "mysql"
	SQLite             SQLiteSettings
	MySQL              MySQLSettings
	SlowQueryThreshold time.Duration // queries slower than this are logged as warnings
	AutoMigrate        bool          // create missing tables at startup
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Enabled         bool
	Port            string
	Prefix          string // route prefix, e.g. "/api/v1"
	ShutdownTimeout time.Duration
}

// MQTTSettings configures the MQTT ingestion subscriber.
type MQTTSettings struct {
	Enabled        bool
	Broker         string // e.g. tcp://localhost:1883
	Topic          string
	ClientID       string
	Username       string
	Password       string
	PasswordFile   string
	QoS            int
	IngestTimeout  time.Duration // ceiling for handling one message
	ConnectTimeout time.Duration
}

// IngestSettings groups the asynchronous ingestion sources.
type IngestSettings struct {
	MQTT MQTTSettings
}

// TelegramSettings configures the Telegram Bot API transport.
type TelegramSettings struct {
	Token     string
	TokenFile string  // e.g. a Docker secret; takes precedence over Token
	BaseURL   string  // Bot API endpoint, overridable for self-hosted API servers
	RateLimit float64 // messages per second
	Burst     int
}

// ShoutrrrSettings configures the shoutrrr transport. The {channel}
// placeholder in URLTemplate is replaced with the company channel id.
type ShoutrrrSettings struct {
	URLTemplate string
}

// CircuitBreakerSettings configures the transport circuit breaker.
type CircuitBreakerSettings struct {
	Enabled     bool
	MaxFailures int
	Cooldown    time.Duration
}

// NotificationSettings configures alert delivery.
type NotificationSettings struct {
	Enabled         bool
	Transport       string // "telegram" or "shoutrrr"
	Telegram        TelegramSettings
	Shoutrrr        ShoutrrrSettings
	RequestTimeout  time.Duration // per attempt
	DispatchTimeout time.Duration // ceiling around a whole dispatch call
	MaxAttempts     int
	InitialBackoff  time.Duration
	CircuitBreaker  CircuitBreakerSettings
}

// DirectorySettings configures lookups of monitors, engines and companies.
type DirectorySettings struct {
	CacheTTL time.Duration // 0 disables caching
}

// StatisticsSettings configures the statistics aggregator.
type StatisticsSettings struct {
	MaxBuckets      int
	DefaultTimezone string
}

// PaginationSettings bounds list and search page sizes.
type PaginationSettings struct {
	DefaultLimit int
	MaxLimit     int
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	DSNFile     string
	Environment string
}

// Settings contains all configuration options for securitas.
type Settings struct {
	Debug bool

	Main         MainSettings
	Logging      logger.LoggingConfig
	Database     DatabaseSettings
	WebServer    WebServerSettings
	Ingest       IngestSettings
	Notification NotificationSettings
	Directory    DirectorySettings
	Statistics   StatisticsSettings
	Pagination   PaginationSettings
	Sentry       SentrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
// An empty configFile searches the default config paths; a missing file is not
// an error and leaves the defaults in place.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix("SECURITAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			GetLogger().Info("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "securitas"))
	}
	return append(paths, "/etc/securitas")
}

// GetSettings returns the most recently loaded settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultSettings returns the settings produced by the defaults alone.
func DefaultSettings() (*Settings, error) {
	setDefaultConfig()
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	return settings, nil
}

// SaveYAMLConfig writes settings to configPath. The file is written to a
// temporary file first and renamed into place.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Chmod(tempFileName, 0o600); err != nil {
		return fmt.Errorf("error setting config file permissions: %w", err)
	}
	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
