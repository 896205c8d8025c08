package observability

import (
	"fmt"

	"github.com/tphakala/securitas/internal/logger"
)

// promLogger adapts the module logger to promhttp's error log.
type promLogger struct{}

func (promLogger) Println(v ...any) {
	logger.Global().Module("metrics").Error(fmt.Sprint(v...))
}
