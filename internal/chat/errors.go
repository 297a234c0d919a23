// Package chat implements the single-session conversation controller:
// the message log, intent classification, and merging of remote results.
package chat

import "errors"

// Sentinel errors for session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrEmptyInput indicates a submission that is empty after trimming.
	// The session is left unchanged.
	ErrEmptyInput = errors.New("empty input")

	// ErrBusy indicates a submission while another request is in flight.
	// The session is left unchanged.
	ErrBusy = errors.New("request already in flight")

	// ErrReset indicates the session was reset while a request was in flight
	// and its reply did not reach the new conversation.
	ErrReset = errors.New("conversation was reset")

	// ErrNotFound indicates the target message is not in the log.
	ErrNotFound = errors.New("message not found")

	// ErrImmutable indicates a patch against a message that may no longer change:
	// USER entries, entries already flagged as errors, or a second image.
	ErrImmutable = errors.New("message is immutable")
)
