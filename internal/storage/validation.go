// Package storage persists naming patterns and rename history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDocumentType rejects types outside the closed set.
func validateDocumentType(docType model.DocumentType) error {
	if !docType.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrUnknownDocumentType, string(docType))
	}
	return nil
}

// validateEntry checks a history entry before it is appended.
func validateEntry(entry *model.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", common.ErrInvalidEntry)
	}
	if strings.TrimSpace(entry.OriginalName) == "" {
		return fmt.Errorf("%w: missing original name", common.ErrInvalidEntry)
	}
	// Failed entries may predate classification and carry no type.
	if !entry.DocumentType.IsValid() && (entry.DocumentType != "" || entry.Outcome != model.OutcomeFailed) {
		return fmt.Errorf("%w: unknown document type %q", common.ErrInvalidEntry, string(entry.DocumentType))
	}
	if !entry.Outcome.IsValid() {
		return fmt.Errorf("%w: unknown outcome %q", common.ErrInvalidEntry, string(entry.Outcome))
	}
	if entry.Outcome == model.OutcomeApplied {
		if strings.TrimSpace(entry.NewName) == "" {
			return fmt.Errorf("%w: applied entry without new name", common.ErrInvalidEntry)
		}
		if strings.TrimSpace(entry.PatternID) == "" {
			return fmt.Errorf("%w: applied entry without pattern id", common.ErrInvalidEntry)
		}
	}
	return nil
}
