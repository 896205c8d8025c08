package ingest

import "github.com/tphakala/securitas/internal/logger"

const component = "ingest"

// GetLogger returns the ingest module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(component)
}
