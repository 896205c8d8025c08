package conf

// Database types
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// Notification transports
const (
	TransportTelegram = "telegram"
	TransportShoutrrr = "shoutrrr"
)

// ChannelPlaceholder is replaced with the company channel id in shoutrrr URL templates.
const ChannelPlaceholder = "{channel}"
