package notification

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/directory"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
)

func notFound(kind, id string) error {
	return errors.Newf("%s %s not found", kind, id).
		Component("test").
		Category(errors.CategoryNotFound).
		Build()
}

// memDirectory is an in-memory directory.Directory backend.
type memDirectory struct {
	companies map[string]*entities.Company
	monitors  map[string]*entities.Monitor
	engines   map[string]*entities.Engine
	settings  map[string]*entities.NotificationSetting
}

func (m *memDirectory) GetByCode(_ context.Context, code string) (*entities.Company, error) {
	if c, ok := m.companies[code]; ok {
		return c, nil
	}
	return nil, notFound("company", code)
}

type memMonitors struct{ *memDirectory }

func (m memMonitors) Get(_ context.Context, id string) (*entities.Monitor, error) {
	if mon, ok := m.monitors[id]; ok {
		return mon, nil
	}
	return nil, notFound("monitor", id)
}

func (m memMonitors) ListByCompany(_ context.Context, code string) ([]*entities.Monitor, error) {
	var out []*entities.Monitor
	for _, mon := range m.monitors {
		if mon.CompanyCode == code {
			out = append(out, mon)
		}
	}
	return out, nil
}

type memEngines struct{ *memDirectory }

func (m memEngines) Get(_ context.Context, id string) (*entities.Engine, error) {
	if e, ok := m.engines[id]; ok {
		return e, nil
	}
	return nil, notFound("engine", id)
}

func (m memEngines) ListAll(context.Context) ([]*entities.Engine, error) {
	out := make([]*entities.Engine, 0, len(m.engines))
	for _, e := range m.engines {
		out = append(out, e)
	}
	return out, nil
}

type memSettings struct{ *memDirectory }

func (m memSettings) GetByCompany(_ context.Context, code string) (*entities.NotificationSetting, error) {
	if s, ok := m.settings[code]; ok {
		return s, nil
	}
	return nil, notFound("notification settings", code)
}

func (m *memDirectory) directory() *directory.Directory {
	return &directory.Directory{
		Monitors:  memMonitors{m},
		Engines:   memEngines{m},
		Companies: m,
		Settings:  memSettings{m},
	}
}

func strPtr(s string) *string { return &s }

// newTestDirectory returns a directory with company ACME (Asia/Ho_Chi_Minh,
// channel -100123), monitor m1 and engine eng-cam. Company NOCHAN has no
// settings row.
func newTestDirectory() *memDirectory {
	return &memDirectory{
		companies: map[string]*entities.Company{
			"ACME":   {CompanyCode: "ACME", Name: "Acme & Sons", Locale: entities.CompanyLocale{Timezone: "Asia/Ho_Chi_Minh"}},
			"NOCHAN": {CompanyCode: "NOCHAN", Name: "No Channel"},
		},
		monitors: map[string]*entities.Monitor{
			"m1": {ID: "m1", CompanyCode: "ACME", Name: "Front Gate"},
		},
		engines: map[string]*entities.Engine{
			"eng-cam": {ID: "eng-cam", Name: "Intrusion", Description: "Person in restricted zone"},
		},
		settings: map[string]*entities.NotificationSetting{
			"ACME": {CompanyCode: "ACME", TelegramGroupID: strPtr("-100123"), TelegramEnabled: true},
		},
	}
}

func testDetection() *entities.Detection {
	return &entities.Detection{
		ID:        "det-1",
		Timestamp: time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC),
		MonitorID: "m1",
		EngineID:  "eng-cam",
		Status:    entities.StatusPending,
		Approved:  entities.ApprovalYes,
	}
}

type sentMessage struct {
	ChannelID string
	Message   Message
}

// fakeTransport records sends and returns queued errors in order; once the
// queue is empty every send succeeds.
type fakeTransport struct {
	mu    sync.Mutex
	errs  []error
	sent  []sentMessage
	calls int
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(_ context.Context, channelID string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Message: msg})
	return nil
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTransport) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelDebug, time.UTC)
}

func newTestMetrics(t *testing.T) (*metrics.NotificationMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewNotificationMetrics(reg)
	require.NoError(t, err)
	return m, reg
}

// fastRetry keeps retry tests quick.
var fastRetry = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, RequestTimeout: time.Second}

func newTestDispatcher(t *testing.T, dir *memDirectory, transport ChannelTransport) (*Dispatcher, *metrics.NotificationMetrics, *prometheus.Registry) {
	t.Helper()
	m, reg := newTestMetrics(t)
	d, err := NewDispatcher(&Config{
		Directory: dir.directory(),
		Transport: transport,
		Retry:     fastRetry,
		Metrics:   m,
		Logger:    testLogger(),
	})
	require.NoError(t, err)
	return d, m, reg
}
