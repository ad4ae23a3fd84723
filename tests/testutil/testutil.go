// Package testutil holds helpers shared by the integration suites: an API
// client speaking the response envelope, an event recorder and polling
// assertions.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// UniqueName appends a short random suffix so parallel tests do not collide
// on unique columns such as usernames.
func UniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// ContextWithTimeout returns a context cancelled when the test ends or the
// timeout elapses, whichever comes first.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// WaitFor polls condition until it holds or the timeout elapses
func WaitFor(condition func() bool, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}

// RequireEventually fails the test if condition does not hold within timeout
func RequireEventually(t *testing.T, condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	if !WaitFor(condition, timeout, 10*time.Millisecond) {
		require.Fail(t, "condition not met within "+timeout.String(), msgAndArgs...)
	}
}

// RequireNever fails the test if condition becomes true within duration
func RequireNever(t *testing.T, condition func() bool, duration time.Duration, msgAndArgs ...any) {
	t.Helper()
	if WaitFor(condition, duration, 10*time.Millisecond) {
		require.Fail(t, "condition unexpectedly became true", msgAndArgs...)
	}
}

// WaitForEventCount waits until h has recorded at least count events
func WaitForEventCount(t *testing.T, h *RecordingHandler, count int, timeout time.Duration) {
	t.Helper()
	RequireEventually(t, func() bool { return h.HandledCount() >= count }, timeout,
		"expected %d events, got %d", count, h.HandledCount())
}
