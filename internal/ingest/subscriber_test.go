package ingest

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/detection"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
	asynctest "github.com/tphakala/securitas/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeIngester records requests and returns err when set.
type fakeIngester struct {
	mu       sync.Mutex
	requests []*detection.IngestRequest
	deadline bool
	err      error
}

func (f *fakeIngester) Ingest(ctx context.Context, req *detection.IngestRequest) (*entities.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &entities.Detection{ID: req.ID, Approved: entities.ApprovalYes}, nil
}

// fakeMessage implements mqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newTestSubscriber(t *testing.T, ing Ingester) (*Subscriber, *metrics.MQTTMetrics) {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	s := NewSubscriber(Config{
		Broker:        "tcp://broker.test:1883",
		Topic:         "securitas/detections",
		ClientID:      "test",
		QoS:           1,
		IngestTimeout: time.Second,
	}, ing, m, logger.NewSlogLogger(io.Discard, logger.LogLevelDebug, time.UTC))
	return s, m
}

func TestHandleMessage_Ingests(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{}
	s, m := newTestSubscriber(t, ing)

	payload := []byte(`{"id":"det-1","monitor_id":"m1","engine":"eng-cam","alert":"Y","metadata":{"score":0.9}}`)
	s.onMessage(nil, &fakeMessage{topic: "securitas/detections", payload: payload})

	require.Len(t, ing.requests, 1)
	req := ing.requests[0]
	assert.Equal(t, "det-1", req.ID)
	assert.Equal(t, "m1", req.MonitorID)
	assert.Equal(t, "eng-cam", req.Engine)
	require.NotNil(t, req.Alert)
	assert.True(t, bool(*req.Alert))
	assert.True(t, ing.deadline, "each message runs under its own timeout")

	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesReceived), 0)
	assert.Zero(t, testutil.CollectAndCount(m.MessagesDropped))
}

func TestHandleMessage_Drops(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		payload    string
		ingestErr  error
		wantReason string
		wantCalls  int
	}{
		{
			name:       "invalid json",
			payload:    `{"id":`,
			wantReason: dropInvalidPayload,
		},
		{
			name:       "validation error",
			payload:    `{"monitor_id":"m1"}`,
			ingestErr:  errors.Newf("engine is required").Category(errors.CategoryValidation).Build(),
			wantReason: dropRejected,
			wantCalls:  1,
		},
		{
			name:       "unknown monitor",
			payload:    `{"monitor_id":"gone","engine":"eng-cam"}`,
			ingestErr:  errors.Newf("monitor gone not found").Category(errors.CategoryNotFound).Build(),
			wantReason: dropRejected,
			wantCalls:  1,
		},
		{
			name:       "transient store error",
			payload:    `{"monitor_id":"m1","engine":"eng-cam"}`,
			ingestErr:  errors.Newf("database is locked").Category(errors.CategoryDatabase).Build(),
			wantReason: dropError,
			wantCalls:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ing := &fakeIngester{err: tt.ingestErr}
			s, m := newTestSubscriber(t, ing)

			err := s.HandleMessage(t.Context(), "securitas/detections", []byte(tt.payload))
			require.Error(t, err)
			assert.Len(t, ing.requests, tt.wantCalls)
			assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesDropped.WithLabelValues(tt.wantReason)), 0)
		})
	}
}

func TestClientOptions(t *testing.T) {
	t.Parallel()

	s, _ := newTestSubscriber(t, &fakeIngester{})
	s.config.Username = "engine"
	s.config.Password = "secret"

	opts := s.clientOptions()
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker.test:1883", opts.Servers[0].Host)
	assert.Equal(t, "test", opts.ClientID)
	assert.Equal(t, "engine", opts.Username)
	assert.True(t, opts.AutoReconnect)
	assert.False(t, opts.CleanSession)
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Main.Name = "securitas"
	settings.Ingest.MQTT = conf.MQTTSettings{
		Broker:        "tcp://localhost:1883",
		Topic:         "detections/#",
		QoS:           1,
		IngestTimeout: 5 * time.Second,
	}

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, "detections/#", cfg.Topic)
	assert.Equal(t, byte(1), cfg.QoS)
	assert.Regexp(t, `^securitas-[0-9a-f]{8}$`, cfg.ClientID)

	settings.Ingest.MQTT.ClientID = "fixed"
	assert.Equal(t, "fixed", ConfigFromSettings(settings).ClientID)
}

func TestStop_NotStarted(t *testing.T) {
	t.Parallel()

	s, _ := newTestSubscriber(t, &fakeIngester{})
	s.Stop()
}

// blockingIngester blocks each call until release is closed.
type blockingIngester struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingIngester) Ingest(ctx context.Context, req *detection.IngestRequest) (*entities.Detection, error) {
	close(b.started)
	<-b.release
	return &entities.Detection{ID: req.ID}, nil
}

func TestStop_WaitsForInflightMessages(t *testing.T) {
	t.Parallel()

	ing := &blockingIngester{started: make(chan struct{}), release: make(chan struct{})}
	s, _ := newTestSubscriber(t, ing)

	go s.onMessage(nil, &fakeMessage{topic: "securitas/detections", payload: []byte(`{"id":"det-1","monitor_id":"m1","engine":"eng-cam"}`)})
	asynctest.WaitForChannel(t, ing.started, asynctest.DefaultTestTimeout, "message was not handled")

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	asynctest.RequireBlocked(t, stopped, "Stop returned while a message was in flight")

	close(ing.release)
	asynctest.WaitForChannel(t, stopped, asynctest.DefaultTestTimeout, "Stop did not return after the message finished")
}
