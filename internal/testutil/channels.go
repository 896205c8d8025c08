// Package testutil provides shared test helpers for asynchronous code.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeouts.
const (
	// DefaultTestTimeout bounds waits for work expected to finish.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is how long a test waits to show that something
	// has not happened yet.
	ShortTestTimeout = 50 * time.Millisecond
)

// WaitForChannel waits for a signal or close on ch and fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// RequireBlocked fails if ch is signalled or closed within ShortTestTimeout.
func RequireBlocked(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
		require.Fail(t, msg)
	case <-time.After(ShortTestTimeout):
	}
}
