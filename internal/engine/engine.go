// Package engine turns classified documents into rename decisions and applies them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/rename-agent/internal/filename"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/pattern"
)

// ErrEmptyPath is returned when a request names no file.
var ErrEmptyPath = errors.New("file path cannot be empty")

// Engine decides the new name for a document and records the outcome.
type Engine struct {
	chooser   pattern.Chooser
	ledger    Appender
	now       func() time.Time
	maxLength int
}

// Config holds configuration options for the engine.
type Config struct {
	// MaxLength bounds generated names in bytes. Zero uses the sanitizer default.
	MaxLength int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxLength: filename.DefaultMaxLength,
	}
}

// New creates an engine with the default configuration.
func New(chooser pattern.Chooser, ledger Appender) *Engine {
	return NewWithConfig(chooser, ledger, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(chooser pattern.Chooser, ledger Appender, config Config) *Engine {
	return &Engine{
		chooser:   chooser,
		ledger:    ledger,
		now:       time.Now,
		maxLength: config.MaxLength,
	}
}

// Request describes one document to name.
type Request struct {
	Fields model.Fields
	// Reserved holds names already promised to earlier documents of the same batch.
	Reserved     filename.NameSet
	Path         string
	DocumentType model.DocumentType
	// Dir is where the renamed file will live. Empty means the file's own directory.
	Dir    string
	DryRun bool
}

// Decision is the proposed rename for one document.
type Decision struct {
	Selection *pattern.Selection
	Source    string
	Target    string
	Name      model.RenderedName
	DryRun    bool
}

// Unchanged reports whether the document already carries the proposed name.
func (d *Decision) Unchanged() bool {
	return filepath.Clean(d.Source) == filepath.Clean(d.Target)
}

// Decide selects a pattern, renders it, and sanitizes the result against the
// names present in the target directory. It never touches the filesystem
// beyond listing that directory.
func (e *Engine) Decide(ctx context.Context, req Request) (*Decision, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if strings.TrimSpace(req.Path) == "" {
		return nil, ErrEmptyPath
	}
	if !req.DocumentType.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownDocumentType, string(req.DocumentType))
	}

	fields := req.Fields.WithDerived()
	selection, err := e.chooser.Select(ctx, req.DocumentType, fields)
	if err != nil {
		return nil, err
	}

	dir := req.Dir
	if dir == "" {
		dir = filepath.Dir(req.Path)
	}

	existing, err := existingNames(dir)
	if err != nil {
		return nil, err
	}
	if filepath.Clean(dir) == filepath.Clean(filepath.Dir(req.Path)) {
		existing.Remove(filepath.Base(req.Path))
	}
	existing.Merge(req.Reserved)

	name := filename.SanitizeWithOptions(selection.Rendered, filepath.Ext(req.Path), existing, filename.Options{
		MaxLength: e.maxLength,
	})

	return &Decision{
		Selection: selection,
		Source:    req.Path,
		Target:    filepath.Join(dir, name.Name),
		Name:      name,
		DryRun:    req.DryRun,
	}, nil
}

// existingNames lists dir, treating a directory that does not exist yet as empty.
func existingNames(dir string) (filename.NameSet, error) {
	names, err := filename.ListDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return filename.NewNameSet(), nil
	}
	return names, err
}

// Record appends the outcome of a decision to the ledger.
func (e *Engine) Record(ctx context.Context, req Request, decision *Decision, outcome model.Outcome, reason string) error {
	entry := model.HistoryEntry{
		Timestamp:    e.now().UTC(),
		OriginalName: filepath.Base(req.Path),
		DocumentType: req.DocumentType,
		Fields:       req.Fields.Clone(),
		Outcome:      outcome,
		Reason:       reason,
	}
	if decision != nil {
		entry.NewName = decision.Name.Name
		entry.PatternID = decision.Selection.Pattern.ID
	}

	if err := e.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record %s for %s: %w", outcome, entry.OriginalName, err)
	}
	return nil
}

// RecordFailure appends a failed entry carrying err as the reason.
func (e *Engine) RecordFailure(ctx context.Context, req Request, cause error) error {
	return e.Record(ctx, req, nil, model.OutcomeFailed, cause.Error())
}
