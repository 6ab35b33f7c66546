// Package notifications pushes run outcomes to ntfy.
//
// The service is a no-op when no topic is configured, and each outcome can be
// muted with notifications.on_success / on_failure. Delivery failures are the
// caller's to log; they never fail a run.
package notifications
