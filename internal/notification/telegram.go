package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/httpclient"
)

const (
	transportTelegram = "telegram"

	defaultTelegramBaseURL = "https://api.telegram.org"

	// maxCaptionLength is the Bot API limit for media captions, in characters.
	// Longer alerts are sent as plain messages with the link inline.
	maxCaptionLength = 1024
)

// TelegramConfig is the immutable configuration of a TelegramTransport.
type TelegramConfig struct {
	Token     string
	BaseURL   string
	RateLimit float64 // messages per second, 0 disables limiting
	Burst     int
}

// TelegramTransport sends alerts through the Telegram Bot API.
type TelegramTransport struct {
	endpoint string // base URL including the bot token
	client   *httpclient.Client
	limiter  *rate.Limiter
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// NewTelegramTransport creates a Telegram transport. The token is required.
func NewTelegramTransport(cfg *TelegramConfig, client *httpclient.Client) (*TelegramTransport, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.Newf("telegram bot token is not configured").
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if client == nil {
		client = httpclient.New(nil)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}

	t := &TelegramTransport{
		endpoint: baseURL + "/bot" + cfg.Token,
		client:   client,
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t, nil
}

// Name implements ChannelTransport.
func (t *TelegramTransport) Name() string {
	return transportTelegram
}

// Send implements ChannelTransport. Media alerts use sendPhoto or sendVideo
// with the text as caption; everything else uses sendMessage.
func (t *TelegramTransport) Send(ctx context.Context, channelID string, msg Message) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return &SendError{Transport: transportTelegram, Err: err}
		}
	}

	method, payload := t.request(channelID, msg)

	var resp telegramResponse
	err := t.client.PostJSON(ctx, t.endpoint+"/"+method, payload, &resp)
	if err != nil {
		return t.classify(err)
	}
	if !resp.OK {
		return &SendError{
			Transport: transportTelegram,
			Permanent: true,
			Err:       fmt.Errorf("%s rejected: %s", method, resp.Description),
		}
	}
	return nil
}

func (t *TelegramTransport) request(channelID string, msg Message) (method string, payload map[string]any) {
	payload = map[string]any{
		"chat_id":    channelID,
		"parse_mode": "HTML",
	}
	if utf8.RuneCountInString(msg.Text) > maxCaptionLength || !msg.HasMedia() {
		payload["text"] = msg.Text
		return "sendMessage", payload
	}
	payload["caption"] = msg.Text
	if msg.ImageURL != "" {
		payload["photo"] = msg.ImageURL
		return "sendPhoto", payload
	}
	payload["video"] = msg.VideoURL
	return "sendVideo", payload
}

// classify turns a client error into a SendError, reading the Bot API error
// body for the description and any retry_after hint.
func (t *TelegramTransport) classify(err error) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		// Strip the URL from transport errors, it contains the bot token.
		return &SendError{Transport: transportTelegram, Err: redactToken(err, t.endpoint)}
	}

	sendErr := &SendError{
		Transport:  transportTelegram,
		StatusCode: statusErr.StatusCode,
		Permanent:  permanentStatus(statusErr.StatusCode),
		Err:        statusErr,
	}
	var body telegramResponse
	if json.Unmarshal(statusErr.Body, &body) == nil {
		if body.Description != "" {
			sendErr.Err = errors.NewStd(body.Description)
		}
		if body.Parameters != nil && body.Parameters.RetryAfter > 0 {
			sendErr.RetryAfter = time.Duration(body.Parameters.RetryAfter) * time.Second
		}
	}
	return sendErr
}

func redactToken(err error, endpoint string) error {
	msg := err.Error()
	if !strings.Contains(msg, endpoint) {
		return err
	}
	i := strings.LastIndex(endpoint, "/bot")
	return errors.NewStd(strings.ReplaceAll(msg, endpoint, endpoint[:i]+"/bot<redacted>"))
}
