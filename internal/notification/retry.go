package notification

import (
	"context"
	"time"

	"github.com/tphakala/securitas/internal/logger"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = time.Second
	defaultRequestTimeout = 10 * time.Second
)

// RetryPolicy bounds delivery attempts. The delay before attempt n+1 is
// InitialBackoff * 2^(n-1), raised to the server requested retry_after when
// that still fits in the caller's deadline.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	RequestTimeout time.Duration // per attempt
}

// DefaultRetryPolicy returns 3 attempts with backoff doubling from one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    defaultMaxAttempts,
		InitialBackoff: defaultInitialBackoff,
		RequestTimeout: defaultRequestTimeout,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = defaultRequestTimeout
	}
	return p
}

// sendWithRetry calls send until it succeeds, fails permanently, the attempt
// budget runs out or ctx is done. It returns the last error.
func (d *Dispatcher) sendWithRetry(ctx context.Context, channelID string, msg Message, log logger.Logger) error {
	p := d.retry
	backoff := p.InitialBackoff
	transport := d.transport.Name()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		d.metrics.RecordAttempt(transport)

		attemptCtx, cancel := context.WithTimeout(ctx, p.RequestTimeout)
		err = d.transport.Send(attemptCtx, channelID, msg)
		cancel()
		if err == nil {
			return nil
		}
		if isPermanent(err) || attempt == p.MaxAttempts {
			return err
		}

		wait := backoff
		if hint := retryAfter(err); hint > wait {
			wait = hint
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			log.Warn("retry delay exceeds dispatch deadline, giving up",
				logger.Int("attempt", attempt),
				logger.Duration("delay", wait))
			return err
		}

		log.Debug("notification attempt failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", wait),
			logger.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
	}
	return err
}
