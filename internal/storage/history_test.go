package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	err   error
	calls map[string]int
	mu    sync.Mutex
}

func (r *countingRecorder) RecordUsage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[id]++
	return r.err
}

func testEntry(outcome model.Outcome, docType model.DocumentType, at time.Time) model.HistoryEntry {
	entry := model.HistoryEntry{
		Timestamp:    at,
		OriginalName: "scan.pdf",
		DocumentType: docType,
		Outcome:      outcome,
		Fields:       model.Fields{model.FieldMerchant: "Amazon"},
	}
	if outcome != model.OutcomeFailed {
		entry.NewName = "2024-03-15 - Amazon - 19.99.pdf"
		entry.PatternID = "receipt_default"
	} else {
		entry.Reason = "missing field: Amount"
	}
	return entry
}

// ledgerFactories lets the same behavior tests run against both backends.
func ledgerFactories() map[string]func(t *testing.T, recorder service.UsageRecorder) service.HistoryLedger {
	return map[string]func(t *testing.T, recorder service.UsageRecorder) service.HistoryLedger{
		"json": func(t *testing.T, recorder service.UsageRecorder) service.HistoryLedger {
			t.Helper()
			ledger, err := NewJSONLedger(t.TempDir(), recorder)
			require.NoError(t, err)
			return ledger
		},
		"sqlite": func(t *testing.T, recorder service.UsageRecorder) service.HistoryLedger {
			t.Helper()
			return createTestSQLiteLedger(t, recorder)
		},
	}
}

func collect(t *testing.T, ledger service.HistoryLedger, filter service.HistoryFilter) []model.HistoryEntry {
	t.Helper()
	var entries []model.HistoryEntry
	for entry, err := range ledger.Query(context.Background(), filter) {
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}

func TestLedger_AppendRecordsUsageOnlyWhenApplied(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			recorder := &countingRecorder{}
			ledger := newLedger(t, recorder)

			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeDryRun, model.DocumentReceipt, fixedNow)))
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeFailed, model.DocumentReceipt, fixedNow)))
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeSkippedCollision, model.DocumentReceipt, fixedNow)))
			assert.Empty(t, recorder.calls)

			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)))
			assert.Equal(t, map[string]int{"receipt_default": 1}, recorder.calls)
		})
	}
}

func TestLedger_QueryFilters(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ledger := newLedger(t, nil)

			day := 24 * time.Hour
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)))
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeFailed, model.DocumentReceipt, fixedNow.Add(day))))
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentBill, fixedNow.Add(2*day))))

			all := collect(t, ledger, service.HistoryFilter{})
			require.Len(t, all, 3)
			assert.Equal(t, model.DocumentReceipt, all[0].DocumentType)
			assert.True(t, fixedNow.Equal(all[0].Timestamp))
			assert.Equal(t, "Amazon", all[0].Fields[model.FieldMerchant])
			assert.Equal(t, "missing field: Amount", all[1].Reason)

			receipt := model.DocumentReceipt
			assert.Len(t, collect(t, ledger, service.HistoryFilter{Type: &receipt}), 2)

			applied := model.OutcomeApplied
			assert.Len(t, collect(t, ledger, service.HistoryFilter{Outcome: &applied}), 2)
			assert.Len(t, collect(t, ledger, service.HistoryFilter{Type: &receipt, Outcome: &applied}), 1)

			since := fixedNow.Add(day)
			assert.Len(t, collect(t, ledger, service.HistoryFilter{Since: &since}), 2)
			until := fixedNow.Add(day)
			assert.Len(t, collect(t, ledger, service.HistoryFilter{Until: &until}), 2)

			assert.Len(t, collect(t, ledger, service.HistoryFilter{PatternID: "receipt_default"}), 2)
		})
	}
}

func TestLedger_QueryIsRestartable(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ledger := newLedger(t, nil)
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)))

			seq := ledger.Query(ctx, service.HistoryFilter{})
			count := func() int {
				n := 0
				for _, err := range seq {
					require.NoError(t, err)
					n++
				}
				return n
			}
			assert.Equal(t, 1, count())

			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeDryRun, model.DocumentReceipt, fixedNow)))
			assert.Equal(t, 2, count(), "ranging again sees new entries")

			// Early exit
			for range seq {
				break
			}
		})
	}
}

func TestLedger_ComputeStats(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ledger := newLedger(t, nil)

			stats, err := ledger.ComputeStats(ctx)
			require.NoError(t, err)
			assert.Zero(t, stats.TotalEntries)

			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)))
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentBill, fixedNow)))
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeDryRun, model.DocumentReceipt, fixedNow)))
			require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeFailed, model.DocumentReceipt, fixedNow)))

			stats, err = ledger.ComputeStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, stats.TotalEntries)
			assert.Equal(t, 2, stats.TotalRenamed)
			assert.Equal(t, map[model.DocumentType]int{model.DocumentReceipt: 3, model.DocumentBill: 1}, stats.CountsByType)
			assert.Equal(t, map[model.Outcome]int{
				model.OutcomeApplied: 2,
				model.OutcomeDryRun:  1,
				model.OutcomeFailed:  1,
			}, stats.CountsByOutcome)
		})
	}
}

func TestLedger_RejectsInvalidEntry(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			recorder := &countingRecorder{}
			ledger := newLedger(t, recorder)

			entry := testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)
			entry.PatternID = ""
			err := ledger.Append(context.Background(), entry)
			assert.ErrorIs(t, err, common.ErrInvalidEntry)
			assert.Empty(t, recorder.calls)
			assert.Empty(t, collect(t, ledger, service.HistoryFilter{}))
		})
	}
}

func TestLedger_UsageErrors(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// An unknown pattern is logged, not fatal
			ledger := newLedger(t, &countingRecorder{err: common.ErrNotFound})
			assert.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)))

			// Other failures surface after the entry is stored
			boom := errors.New("disk full")
			ledger = newLedger(t, &countingRecorder{err: boom})
			err := ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow))
			assert.ErrorIs(t, err, boom)
			assert.Len(t, collect(t, ledger, service.HistoryFilter{}), 1)
		})
	}
}

func TestJSONLedger_CorruptAndMissingFiles(t *testing.T) {
	ctx := context.Background()

	ledger, err := NewJSONLedger(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, collect(t, ledger, service.HistoryFilter{}))

	require.NoError(t, os.WriteFile(ledger.Path(), []byte("\n"), 0o600))
	assert.Empty(t, collect(t, ledger, service.HistoryFilter{}))

	require.NoError(t, os.WriteFile(ledger.Path(), []byte(`{"history": []}`), 0o600))
	err = ledger.Append(ctx, testEntry(model.OutcomeDryRun, model.DocumentReceipt, fixedNow))
	assert.ErrorIs(t, err, common.ErrStoreCorrupted)

	_, err = ledger.ComputeStats(ctx)
	var corrupt *common.CorruptStoreError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, ledger.Path(), corrupt.Path)

	for _, err := range ledger.Query(ctx, service.HistoryFilter{}) {
		assert.ErrorIs(t, err, common.ErrStoreCorrupted)
	}
}

func TestJSONLedger_AppliedEntryUpdatesPatternStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewPatternStore(dir)
	require.NoError(t, err)
	ledger, err := NewJSONLedger(dir, store)
	require.NoError(t, err)

	_, err = store.PatternsFor(ctx, model.DocumentReceipt)
	require.NoError(t, err)

	require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeDryRun, model.DocumentReceipt, fixedNow)))
	rule, err := store.GetPattern(ctx, "receipt_default")
	require.NoError(t, err)
	assert.Zero(t, rule.UsageCount, "dry runs leave usage untouched")

	require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)))
	rule, err = store.GetPattern(ctx, "receipt_default")
	require.NoError(t, err)
	assert.Equal(t, 1, rule.UsageCount)
	assert.NotNil(t, rule.LastUsed)
}
