package notification

import "github.com/tphakala/securitas/internal/logger"

const component = "notification"

// GetLogger returns the notification module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(component)
}
