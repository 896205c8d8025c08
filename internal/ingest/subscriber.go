// Package ingest feeds detections published by engines over MQTT into the
// detection service.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/detection"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
	"github.com/tphakala/securitas/internal/privacy"
)

const (
	defaultIngestTimeout  = 15 * time.Second
	defaultConnectTimeout = 30 * time.Second
	disconnectQuiesce     = 250 // milliseconds

	// Drop reasons reported by the dropped messages counter.
	dropInvalidPayload = "invalid_payload"
	dropRejected       = "rejected"
	dropError          = "error"
)

// Ingester is the part of the detection service the subscriber drives.
type Ingester interface {
	Ingest(ctx context.Context, req *detection.IngestRequest) (*entities.Detection, error)
}

// Config configures a Subscriber.
type Config struct {
	Broker         string
	Topic          string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	IngestTimeout  time.Duration
	ConnectTimeout time.Duration
}

// ConfigFromSettings maps the MQTT ingestion settings. An empty client id is
// derived from the instance name.
func ConfigFromSettings(settings *conf.Settings) Config {
	m := &settings.Ingest.MQTT
	clientID := m.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("%s-%s", settings.Main.Name, uuid.NewString()[:8])
	}
	return Config{
		Broker:         m.Broker,
		Topic:          m.Topic,
		ClientID:       clientID,
		Username:       m.Username,
		Password:       m.Password,
		QoS:            byte(m.QoS),
		IngestTimeout:  m.IngestTimeout,
		ConnectTimeout: m.ConnectTimeout,
	}
}

// Subscriber consumes detection payloads from an MQTT topic. Each message is
// ingested with its own timeout. Payloads that can never succeed are logged
// and dropped; redelivery of the rest is left to the publisher, and a
// repeated id is idempotent.
type Subscriber struct {
	config   Config
	ingester Ingester
	metrics  *metrics.MQTTMetrics
	log      logger.Logger

	mu       sync.Mutex
	client   mqtt.Client
	baseCtx  context.Context
	inflight sync.WaitGroup
}

// NewSubscriber creates a Subscriber. Call Start to connect.
func NewSubscriber(cfg Config, ingester Ingester, m *metrics.MQTTMetrics, log logger.Logger) *Subscriber {
	if cfg.IngestTimeout <= 0 {
		cfg.IngestTimeout = defaultIngestTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if log == nil {
		log = GetLogger()
	}
	return &Subscriber{
		config:   cfg,
		ingester: ingester,
		metrics:  m,
		log:      log.With(logger.String("broker", privacy.RedactCredentials(cfg.Broker)), logger.String("topic", cfg.Topic)),
		baseCtx:  context.Background(),
	}
}

// Start connects to the broker and subscribes. The subscription is renewed on
// every reconnect. Message handling stops using ctx values but not its
// cancellation; call Stop to shut down.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return errors.Newf("mqtt subscriber already started").
			Component(component).
			Category(errors.CategoryState).
			Build()
	}
	s.baseCtx = context.WithoutCancel(ctx)

	client := mqtt.NewClient(s.clientOptions())
	token := client.Connect()
	if !token.WaitTimeout(s.config.ConnectTimeout) {
		client.Disconnect(0)
		return errors.Newf("timed out connecting to mqtt broker after %v", s.config.ConnectTimeout).
			Component(component).
			Category(errors.CategoryMQTTConnection).
			Context("broker", privacy.RedactCredentials(s.config.Broker)).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryMQTTConnection).
			Context("broker", privacy.RedactCredentials(s.config.Broker)).
			Build()
	}
	s.client = client
	return nil
}

// Stop disconnects and waits for in-flight messages to finish.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client != nil {
		client.Disconnect(disconnectQuiesce)
		s.metrics.SetConnected(false)
	}
	s.inflight.Wait()
}

func (s *Subscriber) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.config.Broker)
	opts.SetClientID(s.config.ClientID)
	opts.SetUsername(s.config.Username)
	opts.SetPassword(s.config.Password)
	// A persistent session keeps QoS 1 messages queued while disconnected.
	opts.SetCleanSession(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(s.config.ConnectTimeout)
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(s.onConnectionLost)
	return opts
}

func (s *Subscriber) onConnect(client mqtt.Client) {
	s.metrics.SetConnected(true)
	s.log.Info("connected to mqtt broker")

	token := client.Subscribe(s.config.Topic, s.config.QoS, s.onMessage)
	if token.WaitTimeout(s.config.ConnectTimeout) && token.Error() == nil {
		s.log.Info("subscribed to detection topic", logger.Int("qos", int(s.config.QoS)))
		return
	}
	err := token.Error()
	if err == nil {
		err = errors.NewStd("subscribe timed out")
	}
	s.log.Error("failed to subscribe to detection topic", logger.Error(err))
}

func (s *Subscriber) onConnectionLost(_ mqtt.Client, err error) {
	s.metrics.SetConnected(false)
	s.log.Warn("connection to mqtt broker lost, reconnecting", logger.Error(err))
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.inflight.Add(1)
	defer s.inflight.Done()

	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	_ = s.HandleMessage(base, msg.Topic(), msg.Payload())
}

// HandleMessage decodes and ingests one payload. The returned error is for
// callers that want it; failures are already logged and counted.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	s.metrics.RecordMessage(len(payload))

	var req detection.IngestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.metrics.RecordDropped(dropInvalidPayload)
		s.log.Warn("dropping undecodable detection payload",
			logger.String("message_topic", topic),
			logger.Int("size", len(payload)),
			logger.Error(err))
		return errors.New(err).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.IngestTimeout)
	defer cancel()

	det, err := s.ingester.Ingest(ctx, &req)
	if err != nil {
		log := s.log.With(
			logger.String("detection_id", req.ID),
			logger.String("monitor_id", req.MonitorID),
			logger.Error(err))
		if errors.IsValidation(err) || errors.IsNotFound(err) {
			s.metrics.RecordDropped(dropRejected)
			log.Warn("dropping rejected detection payload")
		} else {
			s.metrics.RecordDropped(dropError)
			log.Error("failed to ingest detection")
		}
		return err
	}

	s.log.Debug("detection ingested",
		logger.String("detection_id", det.ID),
		logger.String("approved", string(det.Approved)))
	return nil
}
