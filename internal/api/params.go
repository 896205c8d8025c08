package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/datastore/repository"
	"github.com/tphakala/securitas/internal/detection"
	"github.com/tphakala/securitas/internal/errors"
)

const dateLayout = "2006-01-02"

func badRequest(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component(component).
		Category(errors.CategoryValidation).
		Build()
}

// queryParser reads typed query parameters, keeping the first error.
type queryParser struct {
	ctx echo.Context
	err error
}

// first returns the first non-empty value among names.
func (p *queryParser) first(names ...string) (name, value string) {
	for _, n := range names {
		if v := strings.TrimSpace(p.ctx.QueryParam(n)); v != "" {
			return n, v
		}
	}
	return names[0], ""
}

func (p *queryParser) String(names ...string) string {
	_, v := p.first(names...)
	return v
}

func (p *queryParser) Int(name string) int {
	v := p.String(name)
	if v == "" || p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = badRequest("%s must be an integer", name)
	}
	return n
}

func (p *queryParser) Bool(name string) *bool {
	v := p.String(name)
	if v == "" || p.err != nil {
		return nil
	}
	b, err := detection.ParseFlag(v)
	if err != nil {
		p.err = badRequest("%s must be a boolean", name)
		return nil
	}
	return &b
}

// Time accepts RFC 3339 timestamps or plain dates, which mean midnight UTC.
func (p *queryParser) Time(names ...string) *time.Time {
	name, v := p.first(names...)
	if v == "" || p.err != nil {
		return nil
	}
	t, err := parseTime(v)
	if err != nil {
		p.err = badRequest("%s must be an RFC 3339 timestamp or a date", name)
		return nil
	}
	return &t
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, v)
}

func (p *queryParser) Status(name string) *entities.DetectionStatus {
	v := p.String(name)
	if v == "" || p.err != nil {
		return nil
	}
	s, err := entities.ParseDetectionStatus(v)
	if err != nil {
		p.err = badRequest("invalid %s %q", name, v)
		return nil
	}
	return &s
}

func (p *queryParser) Feedback(name string) *entities.FeedbackStatus {
	v := p.String(name)
	if v == "" || p.err != nil {
		return nil
	}
	s, err := entities.ParseFeedbackStatus(v)
	if err != nil {
		p.err = badRequest("invalid %s %q", name, v)
		return nil
	}
	return &s
}

func (p *queryParser) Approval(names ...string) *entities.ApprovalState {
	name, v := p.first(names...)
	if v == "" || p.err != nil {
		return nil
	}
	s, err := entities.ParseApprovalState(v)
	if err != nil {
		p.err = badRequest("invalid %s %q", name, v)
		return nil
	}
	return &s
}

func (p *queryParser) Page() detection.Page {
	return detection.Page{Page: p.Int("page"), PageSize: p.Int("limit")}
}

// detectionFilter reads the list filters shared by list and search.
func (p *queryParser) detectionFilter() repository.DetectionFilter {
	return repository.DetectionFilter{
		MonitorID:        p.String("monitor_id"),
		EngineID:         p.String("engine", "engine_id"),
		Status:           p.Status("status"),
		FeedbackStatus:   p.Feedback("feedback_status"),
		Approved:         p.Approval("approved", "approval_status"),
		Alert:            p.Bool("alert"),
		Unread:           p.Bool("unread"),
		From:             p.Time("from", "start_date"),
		To:               p.Time("to", "end_date"),
		District:         p.String("district"),
		SuspectedOffense: p.String("suspected_offense"),
		VehicleType:      p.String("vehicle_type"),
		LicensePlate:     p.String("license_plate"),
	}
}

func (p *queryParser) searchFilter() repository.SearchFilter {
	return repository.SearchFilter{
		DetectionFilter: p.detectionFilter(),
		Query:           p.String("q", "query"),
		DetectionID:     p.String("detection_id"),
		MonitorName:     p.String("monitor_name"),
		CompanyCode:     p.String("company_code"),
		CompanyName:     p.String("company_name"),
	}
}
