package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/httpclient"
)

// ChannelTransport delivers a rendered message to one channel.
type ChannelTransport interface {
	Name() string
	Send(ctx context.Context, channelID string, msg Message) error
}

// SendError is a classified delivery failure.
type SendError struct {
	Transport  string
	StatusCode int           // HTTP status, 0 when not applicable
	RetryAfter time.Duration // server requested delay, 0 when absent
	Permanent  bool          // retrying the same request cannot succeed
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Transport, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Transport, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// isPermanent reports whether err must not be retried.
func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return true
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Permanent
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Temporary()
	}
	return false
}

// retryAfter returns the server requested delay carried by err, if any.
func retryAfter(err error) time.Duration {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.RetryAfter
	}
	return 0
}

// permanentStatus reports whether an HTTP status code is a client error that
// will not change on retry.
func permanentStatus(code int) bool {
	return code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout &&
		code != http.StatusTooManyRequests
}

// NewTransport builds the transport selected by settings.
func NewTransport(settings *conf.NotificationSettings, client *httpclient.Client) (ChannelTransport, error) {
	switch strings.ToLower(settings.Transport) {
	case conf.TransportTelegram:
		return NewTelegramTransport(&TelegramConfig{
			Token:     settings.Telegram.Token,
			BaseURL:   settings.Telegram.BaseURL,
			RateLimit: settings.Telegram.RateLimit,
			Burst:     settings.Telegram.Burst,
		}, client)
	case conf.TransportShoutrrr:
		return NewShoutrrrTransport(settings.Shoutrrr.URLTemplate, settings.RequestTimeout)
	default:
		return nil, errors.Newf("unsupported notification transport %q", settings.Transport).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
}
