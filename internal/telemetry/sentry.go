// Package telemetry initializes optional Sentry error reporting. Events are
// stripped of host and user data before they leave the process.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/securitas/internal/buildinfo"
	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/privacy"
)

const flushTimeout = 2 * time.Second

// allowedExtras are the only event extras forwarded to Sentry.
var allowedExtras = map[string]struct{}{
	"error_type": {},
	"component":  {},
	"category":   {},
}

// Init configures Sentry from settings and installs it as the error
// reporter. When reporting is disabled it returns a no-op flush and nil.
func Init(settings *conf.SentrySettings, build *buildinfo.Context) (flush func(), err error) {
	log := logger.Global().Module("telemetry")
	if !settings.Enabled {
		log.Debug("error telemetry disabled")
		return func() {}, nil
	}
	if settings.DSN == "" {
		return nil, errors.Newf("sentry enabled without a DSN").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          build.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return nil, errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("error telemetry enabled", logger.String("environment", environment))

	return func() {
		sentry.Flush(flushTimeout)
		errors.SetTelemetryReporter(nil)
	}, nil
}

// applyPrivacyFilters removes host, user and runtime details from event and
// scrubs URLs and tokens from its messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil
	event.Modules = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if _, ok := allowedExtras[k]; !ok {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
