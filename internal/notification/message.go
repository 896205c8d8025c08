package notification

import (
	"html"
	"strings"
	"time"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/timezone"
)

// timeLayout is the timestamp format shown in alerts.
const timeLayout = "2006-01-02 15:04:05"

// Message is a rendered alert. Text is HTML with the Telegram subset of tags.
// At most one of ImageURL and VideoURL is set.
type Message struct {
	Text     string
	ImageURL string
	VideoURL string
}

// HasMedia reports whether the message carries a media attachment.
func (m Message) HasMedia() bool {
	return m.ImageURL != "" || m.VideoURL != ""
}

// Alert holds everything needed to render a detection alert.
type Alert struct {
	Detection *entities.Detection
	Company   *entities.Company
	Monitor   *entities.Monitor
	Engine    *entities.Engine
	Location  *time.Location
}

// Render formats the alert. Values coming from users or engines are escaped.
// An image takes precedence over a video when both are present.
func Render(a *Alert) Message {
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	det := a.Detection

	var b strings.Builder
	b.WriteString("<b>New Detection Alert</b>\n\n")
	writeLine(&b, "Company", a.Company.Name)
	writeLine(&b, "Monitor", a.Monitor.Name)
	writeLine(&b, "ID", det.ID)
	writeLine(&b, "Time", det.Timestamp.In(loc).Format(timeLayout))
	writeLine(&b, "Status", string(det.Status))
	writeLine(&b, "Engine", a.Engine.Name)
	if a.Engine.Description != "" {
		writeLine(&b, "Description", a.Engine.Description)
	}
	b.WriteString("\n")

	msg := Message{}
	switch {
	case det.ImageURL != "":
		writeLink(&b, det.ImageURL, "View Image")
		msg.ImageURL = det.ImageURL
	case det.VideoURL != "":
		writeLink(&b, det.VideoURL, "View Video")
		msg.VideoURL = det.VideoURL
	}
	msg.Text = b.String()
	return msg
}

func writeLine(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(html.EscapeString(value))
	b.WriteString("\n")
}

func writeLink(b *strings.Builder, href, label string) {
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(href))
	b.WriteString(`">`)
	b.WriteString(label)
	b.WriteString("</a>\n")
}

// companyLocation returns the company's configured timezone, falling back to
// UTC when unset. An unusable zone is returned as an error together with UTC.
func companyLocation(c *entities.Company) (*time.Location, error) {
	loc, err := timezone.Parse(c.Locale.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}
