// Package apierror defines the error taxonomy shared by the directory,
// entitlement and resource-manager clients and the pipelines built on them.
//
// The classes matter more than the messages: configuration and permission
// errors abort a run, transient errors are retried by the caller, and
// verification mismatches are reported but never stop sibling work.
package apierror

import (
	"errors"
	"fmt"
)

// Configuration indicates a precondition the operator must fix before
// re-running: a missing role template, a malformed identifier, a required
// input that was not supplied. Never retried.
type Configuration struct {
	Key string // identifying key (display name, id, file path)
	Msg string
}

func (e *Configuration) Error() string {
	return fmt.Sprintf("configuration error: %s (%s)", e.Msg, e.Key)
}

// Permission indicates the acting credential lacks rights for a write.
// Fatal for the whole run, never retried.
type Permission struct {
	Operation string
	Err       error
}

func (e *Permission) Error() string {
	return fmt.Sprintf("permission denied: %s: %v", e.Operation, e.Err)
}

func (e *Permission) Unwrap() error { return e.Err }

// Transient covers network failures, throttling and eventual-consistency
// misses. Callers retry these with a bounded budget.
type Transient struct {
	Operation string
	Err       error
}

func (e *Transient) Error() string {
	return fmt.Sprintf("transient error: %s: %v", e.Operation, e.Err)
}

func (e *Transient) Unwrap() error { return e.Err }

// Verification indicates a write was accepted by the API but a subsequent
// read-back did not reflect it within the retry budget. Reported, not fatal.
type Verification struct {
	Stage string
	Key   string
}

func (e *Verification) Error() string {
	return fmt.Sprintf("verification mismatch: %s not visible after write (%s)", e.Stage, e.Key)
}

// ErrNotFound is returned by lookups that found nothing. For some callers
// this is an error, for others (find-or-create, delegation verify) it is a
// perfectly valid outcome.
var ErrNotFound = errors.New("not found")

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// IsFatal reports whether err must abort the run (configuration or
// permission class).
func IsFatal(err error) bool {
	var c *Configuration
	var p *Permission
	return errors.As(err, &c) || errors.As(err, &p)
}
