package statistics

import (
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
)

const component = "statistics"

// GetLogger returns the statistics module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(component)
}

func badRequest(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component(component).
		Category(errors.CategoryValidation).
		Build()
}
