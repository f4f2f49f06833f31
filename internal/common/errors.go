// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Configuration errors. These are the only errors that abort a run.
	ErrConfiguration = errors.New("configuration error")
	ErrMissingConfig = errors.New("missing configuration")

	// Identity errors.
	ErrUnresolvedIdentity  = errors.New("unresolved identity")
	ErrUnparsableNumber    = errors.New("unparsable number")
	ErrConflictingEvidence = errors.New("conflicting evidence")

	// Document errors.
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrUnreadableDocument = errors.New("unreadable document")

	// Storage errors.
	ErrNotFound = errors.New("not found")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsFatal reports whether an error must end the run. Everything except a
// configuration problem is recovered locally.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrMissingConfig)
}
