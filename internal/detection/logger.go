package detection

import "github.com/tphakala/securitas/internal/logger"

// GetLogger returns the detection module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(component)
}
