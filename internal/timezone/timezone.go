// Package timezone resolves the zone names used by company locales and
// statistics reports.
package timezone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/securitas/internal/errors"
)

const component = "timezone"

// maxOffsetHours is the largest UTC offset in use (Pacific/Kiritimati).
const maxOffsetHours = 14

var offsetPattern = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// Parse resolves a zone. It accepts an IANA zone name, "UTC" or the empty
// string, and fixed offsets such as "+02:00", "UTC+2" or "UTC+05:30".
// Failures are validation errors.
func Parse(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch strings.ToUpper(name) {
	case "", "UTC", "Z", "GMT":
		return time.UTC, nil
	case "LOCAL":
		// The server zone would make output depend on the host.
		return nil, invalid("timezone %q is not allowed", name)
	}

	if m := offsetPattern.FindStringSubmatch(strings.ToUpper(name)); m != nil {
		return fixedOffset(name, m[1], m[2], m[3])
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, invalid("unknown timezone %q", name)
	}
	return loc, nil
}

func fixedOffset(name, sign, hours, minutes string) (*time.Location, error) {
	h, _ := strconv.Atoi(hours)
	m := 0
	if minutes != "" {
		m, _ = strconv.Atoi(minutes)
	}
	if h > maxOffsetHours || m >= 60 || (h == maxOffsetHours && m > 0) {
		return nil, invalid("timezone offset %q out of range", name)
	}
	seconds := h*3600 + m*60
	if sign == "-" {
		seconds = -seconds
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, h, m), seconds), nil
}

func invalid(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component(component).
		Category(errors.CategoryValidation).
		Build()
}
