// Package testutil provides temp-dir fixtures for the pattern store and history ledger.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
	"github.com/Veraticus/rename-agent/internal/storage"
)

// Ledger backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// TestStores bundles a pattern store and a history ledger sharing one data directory.
type TestStores struct {
	Patterns *storage.PatternStore
	Ledger   service.HistoryLedger
	t        *testing.T
	DataDir  string
}

// StoreOptions configures SetupTestStoresWithOptions.
type StoreOptions struct {
	// CustomSetup runs against the pattern store before it is handed out.
	CustomSetup func(context.Context, *storage.PatternStore) error
	// Backend selects the ledger, BackendJSON when empty.
	Backend string
}

// SetupTestStores creates a pattern store and JSON ledger in a fresh temp directory.
//
// Example:
//
//	stores := testutil.SetupTestStores(t)
//	rules, err := stores.Patterns.PatternsFor(ctx, model.DocumentReceipt)
func SetupTestStores(t *testing.T) *TestStores {
	t.Helper()
	return SetupTestStoresWithOptions(t, StoreOptions{})
}

// SetupTestStoresWithOptions creates stores with custom options.
func SetupTestStoresWithOptions(t *testing.T, opts StoreOptions) *TestStores {
	t.Helper()

	dataDir := t.TempDir()
	ctx := context.Background()

	patterns, err := storage.NewPatternStore(dataDir)
	if err != nil {
		t.Fatalf("failed to create pattern store: %v", err)
	}

	var ledger service.HistoryLedger
	switch opts.Backend {
	case BackendJSON, "":
		ledger, err = storage.NewJSONLedger(dataDir, patterns)
		if err != nil {
			t.Fatalf("failed to create history ledger: %v", err)
		}
	case BackendSQLite:
		sqlite, sqliteErr := storage.NewSQLiteLedger(":memory:", patterns)
		if sqliteErr != nil {
			t.Fatalf("failed to create sqlite ledger: %v", sqliteErr)
		}
		if migrateErr := sqlite.Migrate(ctx); migrateErr != nil {
			t.Fatalf("failed to run migrations: %v", migrateErr)
		}
		ledger = sqlite
	default:
		t.Fatalf("unknown ledger backend %q", opts.Backend)
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, patterns); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = ledger.Close()
	})

	return &TestStores{
		Patterns: patterns,
		Ledger:   ledger,
		DataDir:  dataDir,
		t:        t,
	}
}

// History returns every ledger entry in append order or fails the test.
func (s *TestStores) History() []model.HistoryEntry {
	s.t.Helper()

	var entries []model.HistoryEntry
	for entry, err := range s.Ledger.Query(context.Background(), service.HistoryFilter{}) {
		if err != nil {
			s.t.Fatalf("failed to query history: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// MustGetPattern returns the rule with the given id or fails the test.
func (s *TestStores) MustGetPattern(id string) *model.PatternRule {
	s.t.Helper()

	rule, err := s.Patterns.GetPattern(context.Background(), id)
	if err != nil {
		s.t.Fatalf("failed to get pattern %s: %v", id, err)
	}
	return rule
}

// WriteFiles creates empty files in dir and returns their paths.
func WriteFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()

	paths := make([]string, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, nil, 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		paths[i] = path
	}
	return paths
}
