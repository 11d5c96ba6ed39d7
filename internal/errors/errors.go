// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package errors implements the structured error type shared across
// firelet's packages: every error in the system carries a machine-checkable
// Kind plus free-form attributes identifying the offending entity.
package errors

import (
	"errors"
	"fmt"
)

// Kind defines the category of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	KindValidation
	KindNotFound
	KindConflict
	KindUnavailable
	KindTimeout

	// KindBadData covers malformed rows, cyclic groups, and unresolved names.
	KindBadData
	// KindBadRule covers protocol mismatches, invalid actions, out-of-range
	// log levels, and forbidden characters in rule fields.
	KindBadRule
	// KindMissingManagement covers a host with no management-flagged
	// interface, or one that's unreachable when unreachable-ignore is off.
	KindMissingManagement
	// KindInterfaceMismatch covers the model disagreeing with live
	// addressing on a host.
	KindInterfaceMismatch
	// KindSaveRequired covers a compile/deploy attempted against a dirty
	// repository.
	KindSaveRequired
	// KindApplyFailed covers a per-host fleet apply failure.
	KindApplyFailed
	// KindUnreachable covers a host that could not be contacted.
	KindUnreachable
	// KindOutOfRange covers a bad index into a model store.
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindBadData:
		return "bad_data"
	case KindBadRule:
		return "bad_rule"
	case KindMissingManagement:
		return "missing_management"
	case KindInterfaceMismatch:
		return "interface_mismatch"
	case KindSaveRequired:
		return "save_required"
	case KindApplyFailed:
		return "apply_failed"
	case KindUnreachable:
		return "unreachable"
	case KindOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Error represents a structured error in the firelet system.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error as a new Error of the specified kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf wraps an existing error as a new Error of the specified kind with a
// formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// Attr attaches an attribute to an error. If err is not an *Error, it is
// wrapped as KindInternal first.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}

	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Message: err.Error(), Underlying: err}
	}

	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = val
	return e
}

// GetKind returns the Kind of the error, or KindUnknown if it's not a
// firelet error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetAttributes returns all attributes associated with the error and its
// wrap chain, innermost values losing to outer ones on key collision.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	var e *Error

	tempErr := err
	for tempErr != nil {
		if errors.As(tempErr, &e) {
			for k, v := range e.Attributes {
				if _, ok := attrs[k]; !ok {
					attrs[k] = v
				}
			}
			tempErr = e.Underlying
		} else {
			break
		}
	}

	return attrs
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
