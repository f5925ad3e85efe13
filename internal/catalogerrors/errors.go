// Package catalogerrors defines the fault taxonomy TinyOPDS's core
// components recognize and differentiate. Each type wraps an underlying
// cause so callers can both log a specific message and errors.As/errors.Is
// against the category.
package catalogerrors

import "fmt"

// ParseError signals a malformed FB2/EPUB file. The scanner counts it and
// continues; the file is skipped.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError signals a disk or archive read failure. Treated like ParseError
// by the scanner, but additionally logged at Warning level.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io %q: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DuplicateRejected signals that a candidate book lost the duplicate
// detector's version-selection and was silently discarded.
type DuplicateRejected struct {
	Path   string
	Reason string
}

func (e *DuplicateRejected) Error() string {
	return fmt.Sprintf("duplicate rejected %q: %s", e.Path, e.Reason)
}

// StoreError signals a SQL failure. The batch containing it is rolled back;
// the scanner continues with the next batch.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// AuthFailure signals a wrong-credentials HTTP request. Increments the
// per-client failure counter and may trigger a ban.
type AuthFailure struct {
	RemoteAddr string
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("auth failure from %s", e.RemoteAddr)
}

// RateLimited signals a connection refused because the pool cap was
// exceeded or the client is banned.
type RateLimited struct {
	Reason string
}

func (e *RateLimited) Error() string { return "rate limited: " + e.Reason }

// NotFound signals an unknown book ID, genre, or sequence.
type NotFound struct {
	Kind string
	ID   string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// PortInUse signals an HTTP listener start-up failure. It does not crash
// the process; it is surfaced to the operator.
type PortInUse struct {
	Addr string
	Err  error
}

func (e *PortInUse) Error() string {
	return fmt.Sprintf("port in use %s: %v", e.Addr, e.Err)
}

func (e *PortInUse) Unwrap() error { return e.Err }

// ConfigError signals an invalid configuration field. The offending field
// should be reset to its previous valid value by the caller.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
