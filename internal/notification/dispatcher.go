// Package notification delivers alerts for approved detections to the
// per-company messaging channel.
//
// Dispatch is best effort. It resolves the company channel and the display
// metadata of the detection, renders one message and hands it to a
// ChannelTransport under a bounded retry policy and an optional circuit
// breaker. Failures are logged and reported as false, never returned to the
// ingestion or approval caller.
package notification

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/directory"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/httpclient"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
)

// ErrChannelNotConfigured means the company has not opted in to alerts.
var ErrChannelNotConfigured = errors.NewStd("notification channel not configured")

// Dispatcher resolves, renders and delivers detection alerts. It holds no
// memory of what it has sent; callers only dispatch on a transition to YES.
type Dispatcher struct {
	dir       *directory.Directory
	transport ChannelTransport
	retry     RetryPolicy
	metrics   *metrics.NotificationMetrics
	log       logger.Logger
}

// Config holds the collaborators of a Dispatcher. A nil CircuitBreaker
// disables the breaker.
type Config struct {
	Directory      *directory.Directory
	Transport      ChannelTransport
	Retry          RetryPolicy
	CircuitBreaker *CircuitBreakerConfig
	Metrics        *metrics.NotificationMetrics
	Logger         logger.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg *Config) (*Dispatcher, error) {
	if cfg.Directory == nil || cfg.Transport == nil {
		return nil, errors.Newf("notification dispatcher requires a directory and a transport").
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	log := cfg.Logger
	if log == nil {
		log = GetLogger()
	}

	transport := cfg.Transport
	if cfg.CircuitBreaker != nil {
		cb, err := NewCircuitBreaker(transport, *cfg.CircuitBreaker, cfg.Metrics, log)
		if err != nil {
			return nil, err
		}
		transport = cb
	}

	return &Dispatcher{
		dir:       cfg.Directory,
		transport: transport,
		retry:     cfg.Retry.withDefaults(),
		metrics:   cfg.Metrics,
		log:       log,
	}, nil
}

// NewFromSettings builds the transport selected in settings and a Dispatcher
// around it. The settings are copied; later changes have no effect.
func NewFromSettings(settings *conf.NotificationSettings, dir *directory.Directory, m *metrics.NotificationMetrics, log logger.Logger) (*Dispatcher, error) {
	client := httpclient.New(&httpclient.Config{DefaultTimeout: settings.RequestTimeout})
	transport, err := NewTransport(settings, client)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Directory: dir,
		Transport: transport,
		Retry: RetryPolicy{
			MaxAttempts:    settings.MaxAttempts,
			InitialBackoff: settings.InitialBackoff,
			RequestTimeout: settings.RequestTimeout,
		},
		Metrics: m,
		Logger:  log,
	}
	if settings.CircuitBreaker.Enabled {
		cfg.CircuitBreaker = &CircuitBreakerConfig{
			MaxFailures: settings.CircuitBreaker.MaxFailures,
			Cooldown:    settings.CircuitBreaker.Cooldown,
		}
	}
	return NewDispatcher(cfg)
}

// Transport returns the transport name, e.g. for logging at startup.
func (d *Dispatcher) Transport() string {
	return d.transport.Name()
}

// Dispatch delivers an alert for det to the channel of companyCode and
// reports whether it was sent. It never panics or returns an error; the
// outcome is logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, companyCode string, det *entities.Detection) bool {
	start := time.Now()
	err := d.Deliver(ctx, companyCode, det)
	transport := d.transport.Name()

	log := d.log.With(
		logger.String("company_code", companyCode),
		logger.String("transport", transport))
	if det != nil {
		log = log.With(logger.String("detection_id", det.ID))
	}

	switch {
	case err == nil:
		d.metrics.RecordDispatch(transport, metrics.NotifySent, time.Since(start))
		log.Info("detection alert sent", logger.Duration("duration", time.Since(start)))
		return true
	case errors.Is(err, ErrChannelNotConfigured):
		d.metrics.RecordDispatch(transport, metrics.NotifySkipped, time.Since(start))
		log.Warn("no notification channel configured for company")
		return false
	default:
		d.metrics.RecordDispatch(transport, metrics.NotifyFailed, time.Since(start))
		log.Warn("detection alert not delivered", logger.Error(err))
		return false
	}
}

// Deliver is Dispatch with the failure returned. Used by the notify command
// to surface the reason to an operator.
func (d *Dispatcher) Deliver(ctx context.Context, companyCode string, det *entities.Detection) error {
	if det == nil {
		return errors.Newf("nil detection").Component(component).Category(errors.CategoryValidation).Build()
	}

	channelID, err := d.channel(ctx, companyCode)
	if err != nil {
		return err
	}
	alert, err := d.resolve(ctx, companyCode, det)
	if err != nil {
		return err
	}

	msg := Render(alert)
	log := d.log.With(
		logger.String("company_code", companyCode),
		logger.String("detection_id", det.ID))
	if err := d.sendWithRetry(ctx, channelID, msg, log); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryDispatch).
			Context("company_code", companyCode).
			Context("detection_id", det.ID).
			Build()
	}
	return nil
}

func (d *Dispatcher) channel(ctx context.Context, companyCode string) (string, error) {
	settings, err := d.dir.Settings.GetByCompany(ctx, companyCode)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", ErrChannelNotConfigured
		}
		return "", err
	}
	channelID := settings.ChannelID()
	if channelID == "" {
		return "", ErrChannelNotConfigured
	}
	return channelID, nil
}

// resolve looks up company, engine and monitor concurrently. Any missing
// reference aborts the alert so that no partial message is sent.
func (d *Dispatcher) resolve(ctx context.Context, companyCode string, det *entities.Detection) (*Alert, error) {
	alert := &Alert{Detection: det}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		company, err := d.dir.Companies.GetByCode(gctx, companyCode)
		if err != nil {
			return err
		}
		alert.Company = company
		return nil
	})
	g.Go(func() error {
		engine, err := d.dir.Engines.Get(gctx, det.EngineID)
		if err != nil {
			return err
		}
		alert.Engine = engine
		return nil
	})
	g.Go(func() error {
		monitor, err := d.dir.Monitors.Get(gctx, det.MonitorID)
		if err != nil {
			return err
		}
		alert.Monitor = monitor
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loc, err := companyLocation(alert.Company)
	if err != nil {
		d.log.Warn("invalid company timezone, using UTC",
			logger.String("company_code", companyCode),
			logger.String("timezone", alert.Company.Locale.Timezone),
			logger.Error(err))
	}
	alert.Location = loc
	return alert, nil
}
