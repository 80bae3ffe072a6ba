package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestSQLiteLedger returns a migrated in-memory ledger.
func createTestSQLiteLedger(t *testing.T, recorder service.UsageRecorder) *SQLiteLedger {
	t.Helper()
	ledger, err := NewSQLiteLedger(":memory:", recorder)
	require.NoError(t, err)
	require.NoError(t, ledger.Migrate(context.Background()))
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestSQLiteLedger_Migrate(t *testing.T) {
	ctx := context.Background()
	ledger := createTestSQLiteLedger(t, nil)

	var version int
	require.NoError(t, ledger.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op
	require.NoError(t, ledger.Migrate(ctx))

	var indexCount int
	err := ledger.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name LIKE 'idx_history_%'
	`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 4, indexCount)
}

func TestSQLiteLedger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), HistoryDBFileName)

	ledger, err := NewSQLiteLedger(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, ledger.Migrate(ctx))
	require.NoError(t, ledger.Append(ctx, testEntry(model.OutcomeApplied, model.DocumentReceipt, fixedNow)))
	require.NoError(t, ledger.Close())

	reopened, err := NewSQLiteLedger(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Migrate(ctx))

	entries := collect(t, reopened, service.HistoryFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "scan.pdf", entries[0].OriginalName)
	assert.Equal(t, model.OutcomeApplied, entries[0].Outcome)
}

func TestNewSQLiteLedger_EmptyPath(t *testing.T) {
	_, err := NewSQLiteLedger("", nil)
	assert.ErrorIs(t, err, ErrEmptyString)
}
