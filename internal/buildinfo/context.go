// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not inject.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// It is injected at startup via -ldflags and never read from config files.
type Context struct {
	version   string
	buildDate string
}

// NewContext creates a Context.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the build version, or UnknownValue.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date, or UnknownValue.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Release is the release identifier reported to error telemetry.
func (c *Context) Release() string {
	return "securitas@" + c.Version()
}

func (c *Context) String() string {
	return fmt.Sprintf("securitas %s (built %s)", c.Version(), c.BuildDate())
}
