package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
)

// HistoryFileName is the ledger file inside the data directory.
const HistoryFileName = "history.json"

// Ensure JSONLedger implements HistoryLedger.
var _ service.HistoryLedger = (*JSONLedger)(nil)

// JSONLedger appends rename decisions to history.json. Entries are never
// edited or removed.
type JSONLedger struct {
	recorder service.UsageRecorder
	path     string
}

// NewJSONLedger opens the ledger in dataDir. recorder receives one usage
// signal per applied entry and may be nil.
func NewJSONLedger(dataDir string, recorder service.UsageRecorder) (*JSONLedger, error) {
	if err := validateString(dataDir, "dataDir"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &JSONLedger{
		path:     filepath.Join(dataDir, HistoryFileName),
		recorder: recorder,
	}, nil
}

// Path returns the location of history.json.
func (l *JSONLedger) Path() string {
	return l.path
}

// Append persists the entry, then records pattern usage if it was applied.
func (l *JSONLedger) Append(ctx context.Context, entry model.HistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(&entry); err != nil {
		return err
	}

	err := withFileLock(ctx, l.path, true, func() error {
		entries, err := l.load()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(append(entries, entry), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		return writeFileAtomic(l.path, append(data, '\n'))
	})
	if err != nil {
		return err
	}

	return recordApplied(ctx, l.recorder, entry)
}

// Query yields matching entries oldest first. Each range re-reads the file.
func (l *JSONLedger) Query(ctx context.Context, filter service.HistoryFilter) iter.Seq2[model.HistoryEntry, error] {
	return func(yield func(model.HistoryEntry, error) bool) {
		entries, err := l.readAll(ctx)
		if err != nil {
			yield(model.HistoryEntry{}, err)
			return
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(model.HistoryEntry{}, err)
				return
			}
			if !filter.Matches(entry) {
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// ComputeStats counts entries by type and outcome.
func (l *JSONLedger) ComputeStats(ctx context.Context) (*service.HistoryStats, error) {
	entries, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := newHistoryStats()
	for _, entry := range entries {
		stats.add(entry.DocumentType, entry.Outcome, 1)
	}
	return stats.HistoryStats, nil
}

// Close is a no-op; the file is only open during calls.
func (l *JSONLedger) Close() error {
	return nil
}

func (l *JSONLedger) readAll(ctx context.Context) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var entries []model.HistoryEntry
	err := withFileLock(ctx, l.path, false, func() error {
		var err error
		entries, err = l.load()
		return err
	})
	return entries, err
}

func (l *JSONLedger) load() ([]model.HistoryEntry, error) {
	data, err := readStoreFile(l.path)
	if err != nil || data == nil {
		return nil, err
	}
	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &common.CorruptStoreError{Path: l.path, Err: err}
	}
	return entries, nil
}

// recordApplied signals usage for applied entries. A pattern that no longer
// exists is logged rather than failing an append that already succeeded.
func recordApplied(ctx context.Context, recorder service.UsageRecorder, entry model.HistoryEntry) error {
	if recorder == nil || entry.Outcome != model.OutcomeApplied {
		return nil
	}
	err := recorder.RecordUsage(ctx, entry.PatternID)
	if errors.Is(err, common.ErrNotFound) {
		common.LogWarn("Applied rename references unknown pattern", common.Fields{
			"pattern_id": entry.PatternID,
			"file":       entry.OriginalName,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record usage of pattern %s: %w", entry.PatternID, err)
	}
	return nil
}

type historyStats struct {
	*service.HistoryStats
}

func newHistoryStats() historyStats {
	return historyStats{&service.HistoryStats{
		CountsByType:    make(map[model.DocumentType]int),
		CountsByOutcome: make(map[model.Outcome]int),
	}}
}

func (s historyStats) add(docType model.DocumentType, outcome model.Outcome, n int) {
	s.CountsByType[docType] += n
	s.CountsByOutcome[outcome] += n
	s.TotalEntries += n
	if outcome == model.OutcomeApplied {
		s.TotalRenamed += n
	}
}
