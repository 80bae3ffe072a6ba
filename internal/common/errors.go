// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateTemplate = errors.New("duplicate template")
	ErrStoreCorrupted    = errors.New("store corrupted")
	ErrLastActivePattern = errors.New("cannot retire the last active pattern for a document type")
	ErrInvalidEntry      = errors.New("invalid history entry")

	// Selection errors.
	ErrNoSuitablePattern = errors.New("no suitable pattern")

	// Classification errors.
	ErrClassificationFailed = errors.New("classification failed")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// CorruptStoreError reports a store file that exists but cannot be parsed.
// Callers must stop rather than overwrite the file.
type CorruptStoreError struct {
	Err  error
	Path string
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt store file %s: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}

// Is matches ErrStoreCorrupted.
func (e *CorruptStoreError) Is(target error) bool {
	return target == ErrStoreCorrupted
}

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
