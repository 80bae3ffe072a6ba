// Package service defines the interfaces shared between the rename agent's components.
package service

import (
	"context"
	"iter"
	"time"

	"github.com/Veraticus/rename-agent/internal/model"
)

// PatternUpdate carries the optional changes for an existing rule. Nil fields are left untouched.
type PatternUpdate struct {
	Template          *string
	Name              *string
	Description       *string
	MatchKeywords     []string
	MatchInstitutions []string
	Priority          *int
}

// PatternOptions carries optional metadata for a newly added rule.
type PatternOptions struct {
	Name              string
	Description       string
	MatchKeywords     []string
	MatchInstitutions []string
	Priority          int
}

// PatternStats summarizes the pattern store.
type PatternStats struct {
	ByType         map[model.DocumentType]TypeStats
	TotalPatterns  int
	ActivePatterns int
	LearnedCount   int
}

// TypeStats holds per-document-type pattern counts.
type TypeStats struct {
	Patterns int
	Uses     int
}

// PatternStore is the durable owner of naming rules and their usage statistics.
type PatternStore interface {
	// PatternsFor returns the active rules for a type, seeding defaults on first use.
	PatternsFor(ctx context.Context, docType model.DocumentType) ([]model.PatternRule, error)
	AddPattern(ctx context.Context, docType model.DocumentType, template string, opts PatternOptions) (*model.PatternRule, error)
	UpdatePattern(ctx context.Context, id string, update PatternUpdate) (*model.PatternRule, error)
	LearnPattern(ctx context.Context, docType model.DocumentType, template, institution string) (*model.PatternRule, error)
	RetirePattern(ctx context.Context, id string) error
	GetPattern(ctx context.Context, id string) (*model.PatternRule, error)
	AllPatterns(ctx context.Context) ([]model.PatternRule, error)
	Stats(ctx context.Context) (*PatternStats, error)
	UsageRecorder
}

// UsageRecorder receives usage signals for applied renames.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, id string) error
}

// HistoryFilter narrows a history query. Zero values match everything.
type HistoryFilter struct {
	Since     *time.Time
	Until     *time.Time
	Type      *model.DocumentType
	Outcome   *model.Outcome
	PatternID string
}

// Matches reports whether an entry satisfies the filter.
func (f HistoryFilter) Matches(entry model.HistoryEntry) bool {
	if f.Type != nil && entry.DocumentType != *f.Type {
		return false
	}
	if f.Outcome != nil && entry.Outcome != *f.Outcome {
		return false
	}
	if f.PatternID != "" && entry.PatternID != f.PatternID {
		return false
	}
	if f.Since != nil && entry.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && entry.Timestamp.After(*f.Until) {
		return false
	}
	return true
}

// HistoryStats aggregates the ledger.
type HistoryStats struct {
	CountsByType    map[model.DocumentType]int
	CountsByOutcome map[model.Outcome]int
	TotalEntries    int
	TotalRenamed    int
}

// HistoryLedger is the append-only record of rename decisions.
type HistoryLedger interface {
	// Append persists the entry and, for applied outcomes, records pattern usage once.
	Append(ctx context.Context, entry model.HistoryEntry) error
	// Query returns a finite sequence that re-reads the ledger each time it is ranged over.
	Query(ctx context.Context, filter HistoryFilter) iter.Seq2[model.HistoryEntry, error]
	ComputeStats(ctx context.Context) (*HistoryStats, error)
	Close() error
}

// Classification is what the external classification step reports for a file.
type Classification struct {
	Fields       model.Fields
	DocumentType model.DocumentType
}

// Classifier is the external oracle that turns a file into a type and fields.
type Classifier interface {
	Classify(ctx context.Context, path string) (*Classification, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
