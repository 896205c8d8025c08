package notification

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/k3a/html2text"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/errors"
)

const (
	transportShoutrrr = "shoutrrr"

	alertTitle = "New Detection Alert"
)

// ShoutrrrTransport delivers alerts through any shoutrrr service. The channel
// id is substituted into a URL template such as
// "discord://token@{channel}" or "generic://hooks.example.com/{channel}".
type ShoutrrrTransport struct {
	template string
	timeout  time.Duration

	mu      sync.Mutex
	senders map[string]*router.ServiceRouter
}

// NewShoutrrrTransport creates a shoutrrr transport. The template must contain
// the channel placeholder.
func NewShoutrrrTransport(template string, timeout time.Duration) (*ShoutrrrTransport, error) {
	if !strings.Contains(template, conf.ChannelPlaceholder) {
		return nil, errors.Newf("shoutrrr url template must contain %s", conf.ChannelPlaceholder).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &ShoutrrrTransport{
		template: template,
		timeout:  timeout,
		senders:  make(map[string]*router.ServiceRouter),
	}, nil
}

// Name implements ChannelTransport.
func (s *ShoutrrrTransport) Name() string {
	return transportShoutrrr
}

// Send implements ChannelTransport. Services receive a plain-text body with
// the media link appended, since most of them do not render HTML.
func (s *ShoutrrrTransport) Send(ctx context.Context, channelID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &SendError{Transport: transportShoutrrr, Err: err}
	}
	sender, err := s.sender(channelID)
	if err != nil {
		return err
	}

	params := stypes.Params{}
	params.SetTitle(alertTitle)
	for _, e := range sender.Send(plainText(msg), &params) {
		if e != nil {
			return &SendError{Transport: transportShoutrrr, Err: e}
		}
	}
	return nil
}

// sender returns the cached router for channelID, creating it on first use.
// An invalid URL is a permanent failure.
func (s *ShoutrrrTransport) sender(channelID string) (*router.ServiceRouter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.senders[channelID]; ok {
		return r, nil
	}
	url := strings.ReplaceAll(s.template, conf.ChannelPlaceholder, channelID)
	r, err := shoutrrr.CreateSender(url)
	if err != nil {
		// The URL may carry credentials; report only the channel.
		return nil, &SendError{
			Transport: transportShoutrrr,
			Permanent: true,
			Err:       errors.Newf("invalid service url for channel %q", channelID).Component(component).Build(),
		}
	}
	if s.timeout > 0 {
		r.Timeout = s.timeout
	}
	r.SetLogger(log.New(io.Discard, "", 0))
	s.senders[channelID] = r
	return r, nil
}

func plainText(msg Message) string {
	text := strings.TrimSpace(html2text.HTML2Text(msg.Text))
	if link := msg.ImageURL + msg.VideoURL; link != "" && !strings.Contains(text, link) {
		text += "\n" + link
	}
	return text
}
