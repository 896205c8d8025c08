package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed means sends flow normally.
	StateClosed CircuitState = iota
	// StateHalfOpen means one probe send is allowed through.
	StateHalfOpen
	// StateOpen means sends are rejected without reaching the transport.
	StateOpen
)

// String returns the string representation of CircuitState.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func (s CircuitState) gauge() int {
	switch s {
	case StateHalfOpen:
		return metrics.BreakerHalfOpen
	case StateOpen:
		return metrics.BreakerOpen
	default:
		return metrics.BreakerClosed
	}
}

// ErrCircuitOpen is returned while the breaker rejects sends.
var ErrCircuitOpen = errors.Newf("notification circuit breaker is open").
	Component(component).
	Category(errors.CategoryDispatch).
	Build()

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening.
	MaxFailures int
	// Cooldown is how long the circuit stays open before a probe is allowed.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig returns the default breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures: 5,
		Cooldown:    time.Minute,
	}
}

// Validate checks the configuration.
func (c CircuitBreakerConfig) Validate() error {
	if c.MaxFailures < 1 {
		return fmt.Errorf("max failures must be at least 1, got %d", c.MaxFailures)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %v", c.Cooldown)
	}
	return nil
}

// CircuitBreaker wraps a ChannelTransport. After MaxFailures consecutive
// failed sends it opens and fails fast; after Cooldown it lets a single probe
// through and closes again if the probe succeeds.
//
// Permanent errors such as an unknown chat count as successes: they describe
// the request, not the health of the transport.
type CircuitBreaker struct {
	next    ChannelTransport
	config  CircuitBreakerConfig
	metrics *metrics.NotificationMetrics
	log     logger.Logger
	now     func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        int
	lastStateChange time.Time
	probing         bool
}

// NewCircuitBreaker wraps next with a breaker.
func NewCircuitBreaker(next ChannelTransport, config CircuitBreakerConfig, m *metrics.NotificationMetrics, log logger.Logger) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if log == nil {
		log = GetLogger()
	}
	cb := &CircuitBreaker{
		next:            next,
		config:          config,
		metrics:         m,
		log:             log,
		now:             time.Now,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
	m.SetBreakerState(next.Name(), StateClosed.gauge())
	return cb, nil
}

// Name implements ChannelTransport.
func (cb *CircuitBreaker) Name() string {
	return cb.next.Name()
}

// Send implements ChannelTransport.
func (cb *CircuitBreaker) Send(ctx context.Context, channelID string, msg Message) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}
	err := cb.next.Send(ctx, channelID, msg)
	cb.afterCall(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the number of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.lastStateChange) < cb.config.Cooldown {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probing = false
	}
	if err == nil || isPermanent(err) {
		cb.failures = 0
		if cb.state != StateClosed {
			cb.setState(StateClosed)
		}
		return
	}

	cb.failures++
	switch cb.state {
	case StateHalfOpen:
		cb.setState(StateOpen)
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(state CircuitState) {
	prev := cb.state
	cb.state = state
	cb.lastStateChange = cb.now()
	cb.metrics.SetBreakerState(cb.next.Name(), state.gauge())

	cb.log.Info("circuit breaker state changed",
		logger.String("transport", cb.next.Name()),
		logger.String("from", prev.String()),
		logger.String("to", state.String()),
		logger.Int("failures", cb.failures))
}
