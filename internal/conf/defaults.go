// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "securitas")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "UTC")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/securitas.log")
	viper.SetDefault("logging.file_output.level", "info")
	viper.SetDefault("logging.module_levels", map[string]string{})

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.sqlite.path", "securitas.db")
	viper.SetDefault("database.mysql.username", "")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.passwordfile", "")
	viper.SetDefault("database.mysql.database", "securitas")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)
	viper.SetDefault("database.automigrate", true)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "3000")
	viper.SetDefault("webserver.prefix", "/api/v1")
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	viper.SetDefault("ingest.mqtt.enabled", false)
	viper.SetDefault("ingest.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("ingest.mqtt.topic", "securitas/detections")
	viper.SetDefault("ingest.mqtt.clientid", "")
	viper.SetDefault("ingest.mqtt.username", "")
	viper.SetDefault("ingest.mqtt.password", "")
	viper.SetDefault("ingest.mqtt.passwordfile", "")
	viper.SetDefault("ingest.mqtt.qos", 1)
	viper.SetDefault("ingest.mqtt.ingesttimeout", 15*time.Second)
	viper.SetDefault("ingest.mqtt.connecttimeout", 30*time.Second)

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.transport", TransportTelegram)
	viper.SetDefault("notification.telegram.token", "")
	viper.SetDefault("notification.telegram.tokenfile", "")
	viper.SetDefault("notification.telegram.baseurl", "https://api.telegram.org")
	viper.SetDefault("notification.telegram.ratelimit", 25.0)
	viper.SetDefault("notification.telegram.burst", 5)
	viper.SetDefault("notification.shoutrrr.urltemplate", "")
	viper.SetDefault("notification.requesttimeout", 10*time.Second)
	viper.SetDefault("notification.dispatchtimeout", 45*time.Second)
	viper.SetDefault("notification.maxattempts", 3)
	viper.SetDefault("notification.initialbackoff", time.Second)
	viper.SetDefault("notification.circuitbreaker.enabled", true)
	viper.SetDefault("notification.circuitbreaker.maxfailures", 5)
	viper.SetDefault("notification.circuitbreaker.cooldown", time.Minute)

	viper.SetDefault("directory.cachettl", 5*time.Minute)

	viper.SetDefault("statistics.maxbuckets", 10000)
	viper.SetDefault("statistics.defaulttimezone", "UTC")

	viper.SetDefault("pagination.defaultlimit", 10)
	viper.SetDefault("pagination.maxlimit", 100)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.dsnfile", "")
	viper.SetDefault("sentry.environment", "production")
}
