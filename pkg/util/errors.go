// Package util provides logging helpers, the shared error taxonomy and small
// string/range utilities.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Run-fatal: ErrTransport, ErrUnsupportedVendor,
// ErrPersistForbidden, ErrAborted. The rest are recorded per port.
var (
	ErrTransport          = errors.New("transport failure")
	ErrUnsupportedVendor  = errors.New("unsupported vendor")
	ErrPortValidation     = errors.New("port validation failed")
	ErrDescriptionFetch   = errors.New("description fetch failed")
	ErrVerificationFailed = errors.New("verification failed")
	ErrPersistForbidden   = errors.New("persisting configuration is forbidden")
	ErrAborted            = errors.New("aborted by operator")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrSwitchLocked       = errors.New("switch is locked by another run")
)

// TransportError wraps a byte-level send/read failure on the session.
type TransportError struct {
	Op  string // "send", "read", "dial"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// NewTransportError creates a transport error
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// UnsupportedVendorError is returned when no adapter is registered for a vendor key.
type UnsupportedVendorError struct {
	Vendor string
	Known  []string
}

func (e *UnsupportedVendorError) Error() string {
	return fmt.Sprintf("unsupported vendor %q (known: %s)", e.Vendor, strings.Join(e.Known, ", "))
}

func (e *UnsupportedVendorError) Unwrap() error {
	return ErrUnsupportedVendor
}

// PortError is a per-port failure. Kind is one of ErrPortValidation,
// ErrDescriptionFetch or ErrVerificationFailed.
type PortError struct {
	Port   string
	Kind   error
	Detail string
}

func (e *PortError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Port, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Port, e.Kind, e.Detail)
}

func (e *PortError) Unwrap() error {
	return e.Kind
}

// NewPortError creates a per-port error
func NewPortError(port string, kind error, detail string) *PortError {
	return &PortError{Port: port, Kind: kind, Detail: detail}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
