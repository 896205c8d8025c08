package statistics

import (
	"strings"
	"time"
)

// GroupBy is the bucket granularity of a report.
type GroupBy string

const (
	GroupByDay  GroupBy = "day"
	GroupByHour GroupBy = "hour"
)

// ParseGroupBy parses a granularity. Empty defaults to day.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", GroupByDay:
		return GroupByDay, nil
	case GroupByHour:
		return GroupByHour, nil
	default:
		return "", badRequest("invalid group_by %q, expected day or hour", s)
	}
}

// layout returns the bucket label format.
func (g GroupBy) layout() string {
	if g == GroupByHour {
		return "2006-01-02 15:00:00"
	}
	return "2006-01-02"
}

// label renders the bucket label of t in loc.
func (g GroupBy) label(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(g.layout())
}

// floor returns the start of the bucket containing t, in loc.
func (g GroupBy) floor(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	hour := 0
	if g == GroupByHour {
		hour = t.Hour()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, loc)
}

// next returns the start of the bucket after start. Days advance on the
// calendar so DST transitions yield 23 or 25 hour days.
func (g GroupBy) next(start time.Time, loc *time.Location) time.Time {
	if g == GroupByHour {
		return start.Add(time.Hour)
	}
	y, m, d := start.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// bucketLabels returns the labels of every bucket from the one containing
// from up to and including the one containing to. It fails once more than
// limit labels would be produced.
func bucketLabels(from, to time.Time, loc *time.Location, g GroupBy, limit int) ([]string, error) {
	var labels []string
	for cur := g.floor(from, loc); !cur.After(to); cur = g.next(cur, loc) {
		label := g.label(cur, loc)
		// The repeated hour of a DST fall-back shares its label.
		if n := len(labels); n > 0 && labels[n-1] == label {
			continue
		}
		if len(labels) == limit {
			return nil, badRequest("range produces more than %d %s buckets", limit, g)
		}
		labels = append(labels, label)
	}
	return labels, nil
}
