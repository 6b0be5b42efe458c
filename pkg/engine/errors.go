package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine error by the boundary it belongs to.
type ErrorKind string

const (
	// ErrorKindRegistration indicates a registry failure: duplicate names,
	// unknown dependencies, or dependency cycles. Fatal at startup.
	ErrorKindRegistration ErrorKind = "registration"

	// ErrorKindComponent indicates a single component's install, uninstall,
	// or probe failed. Caught at the step executor boundary.
	ErrorKindComponent ErrorKind = "component"

	// ErrorKindLedger indicates the state ledger is unreadable, corrupt, or
	// its lock could not be acquired. Fatal for the whole run.
	ErrorKindLedger ErrorKind = "ledger"

	// ErrorKindHook indicates a lifecycle hook failed. Aborts the current
	// phase without automatic rollback.
	ErrorKindHook ErrorKind = "hook"
)

// Error represents a classified engine error with context.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Component is the component name that caused the error, if applicable.
	Component string `json:"component,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s (component=%s)%s", e.Kind, e.Message, e.Component, e.unwrapSuffix())
	}
	return fmt.Sprintf("[%s] %s%s", e.Kind, e.Message, e.unwrapSuffix())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// NewRegistrationError creates a new registration error.
func NewRegistrationError(message string, err error) *Error {
	return &Error{Kind: ErrorKindRegistration, Message: message, Err: err}
}

// NewComponentError creates a new component error.
func NewComponentError(message string, err error) *Error {
	return &Error{Kind: ErrorKindComponent, Message: message, Err: err}
}

// NewLedgerError creates a new ledger error.
func NewLedgerError(message string, err error) *Error {
	return &Error{Kind: ErrorKindLedger, Message: message, Err: err}
}

// NewHookError creates a new hook error.
func NewHookError(message string, err error) *Error {
	return &Error{Kind: ErrorKindHook, Message: message, Err: err}
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithComponent adds component context to an error.
func (e *Error) WithComponent(name string) *Error {
	e.Component = name
	return e
}

// IsRegistration returns true if the error is a registration error.
func IsRegistration(err error) bool {
	return hasKind(err, ErrorKindRegistration)
}

// IsComponent returns true if the error is a component error.
func IsComponent(err error) bool {
	return hasKind(err, ErrorKindComponent)
}

// IsLedger returns true if the error is a ledger error.
func IsLedger(err error) bool {
	return hasKind(err, ErrorKindLedger)
}

// IsHook returns true if the error is a hook error.
func IsHook(err error) bool {
	return hasKind(err, ErrorKindHook)
}

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Common error codes.
const (
	ErrCodeDuplicateName     = "DUPLICATE_NAME"
	ErrCodeUnknownDependency = "UNKNOWN_DEPENDENCY"
	ErrCodeCycle             = "CYCLIC_DEPENDENCY"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeLocked            = "LOCKED"
	ErrCodeCorrupt           = "CORRUPT"
	ErrCodeRunActive         = "RUN_ACTIVE"
	ErrCodeInstallFailed     = "INSTALL_FAILED"
	ErrCodeUninstallFailed   = "UNINSTALL_FAILED"
	ErrCodeProbeFailed       = "PROBE_FAILED"
	ErrCodeHookFailed        = "HOOK_FAILED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)
