// Package entities defines the GORM entity models for securitas.
//
// # Core Entities
//
//   - Detection: one event produced by an engine on a monitor; owned by the detection pipeline
//
// # Directory Entities
//
// These tables are maintained by the administrative side of the platform and are
// only read by the pipeline:
//
//   - Monitor: camera or sensor, carries the per-engine approval policy
//   - Engine: analytics pipeline producing detections
//   - Company: tenant, carries the display name and timezone
//   - NotificationSetting: per-company alert channel configuration
//
// The approved, status and feedback_status columns hold bounded enumerations.
// The enum types validate themselves on write and carry CHECK constraints.
package entities
