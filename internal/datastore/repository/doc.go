// Package repository provides the GORM backed repositories for detections and
// for the read-only directory tables (monitors, engines, companies and
// notification settings).
//
// Repositories return categorized errors from internal/errors. Missing rows are
// CategoryNotFound and wrap one of the sentinel errors in errors.go, so callers
// can use either errors.IsNotFound or errors.Is with the sentinel.
package repository
