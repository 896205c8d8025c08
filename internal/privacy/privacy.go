// Package privacy scrubs credentials and media locations from text that
// leaves the process, such as error telemetry and logged broker addresses.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Detection media links and broker or database addresses.
	urlPattern = regexp.MustCompile(`\b(?:https?|tcp|ssl|tls|mqtts?|wss?|mysql)://\S+`)

	// Telegram bot tokens, also inside a "/bot<token>" path.
	botTokenPattern = regexp.MustCompile(`\d{6,}:[A-Za-z0-9_-]{20,}`)
)

// ScrubMessage replaces URLs with stable anonymized ids and removes bot tokens.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	return botTokenPattern.ReplaceAllString(scrubbed, "[TOKEN_REDACTED]")
}

// AnonymizeURL maps a URL to an id that is stable for the same scheme, host
// category, port and path shape, without revealing any of them.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// RedactCredentials strips user info from an address, keeping scheme, host
// and port, e.g. for logging an MQTT broker. Non-URLs are returned as is.
func RedactCredentials(address string) string {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return address
	}
	if u.User == nil {
		return address
	}
	u.User = nil
	return u.String()
}

// SanitizedError keeps the original error for errors.Is and errors.As but
// reports a scrubbed message.
type SanitizedError struct {
	original error
	message  string
}

func (e *SanitizedError) Error() string { return e.message }

func (e *SanitizedError) Unwrap() error { return e.original }

// WrapError returns err with a scrubbed message, or nil.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &SanitizedError{original: err, message: ScrubMessage(err.Error())}
}

func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil {
		switch {
		case ip.IsLoopback():
			return "localhost"
		case ip.IsPrivate(), ip.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}

// anonymizePath keeps the segment count and numeric segments but hashes names.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch {
		case seg == "":
			continue
		case isNumeric(seg):
			segments = append(segments, "numeric")
		default:
			hash := sha256.Sum256([]byte(seg))
			segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
