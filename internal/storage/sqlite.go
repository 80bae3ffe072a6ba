package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// HistoryDBFileName is the SQLite ledger file inside the data directory.
const HistoryDBFileName = "history.db"

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Ensure SQLiteLedger implements HistoryLedger.
var _ service.HistoryLedger = (*SQLiteLedger)(nil)

// SQLiteLedger keeps the rename history in a SQLite database.
type SQLiteLedger struct {
	db       *sql.DB
	recorder service.UsageRecorder
	dbPath   string
}

// NewSQLiteLedger opens the database at dbPath. Call Migrate before use.
func NewSQLiteLedger(dbPath string, recorder service.UsageRecorder) (*SQLiteLedger, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteLedger{
		db:       db,
		dbPath:   dbPath,
		recorder: recorder,
	}, nil
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Append inserts the entry, then records pattern usage if it was applied.
func (l *SQLiteLedger) Append(ctx context.Context, entry model.HistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(&entry); err != nil {
		return err
	}

	fields, err := json.Marshal(entry.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO history (timestamp, original_name, new_name, document_type, fields, pattern_id, outcome, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(timestampLayout),
		entry.OriginalName,
		entry.NewName,
		string(entry.DocumentType),
		string(fields),
		entry.PatternID,
		string(entry.Outcome),
		entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return recordApplied(ctx, l.recorder, entry)
}

// Query yields matching entries oldest first.
func (l *SQLiteLedger) Query(ctx context.Context, filter service.HistoryFilter) iter.Seq2[model.HistoryEntry, error] {
	return func(yield func(model.HistoryEntry, error) bool) {
		if err := validateContext(ctx); err != nil {
			yield(model.HistoryEntry{}, err)
			return
		}

		where, args := filterClause(filter)
		rows, err := l.db.QueryContext(ctx, `
			SELECT timestamp, original_name, new_name, document_type, fields, pattern_id, outcome, reason
			FROM history`+where+`
			ORDER BY id`, args...)
		if err != nil {
			yield(model.HistoryEntry{}, fmt.Errorf("failed to query history: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				yield(model.HistoryEntry{}, err)
				return
			}
			if !yield(entry, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.HistoryEntry{}, fmt.Errorf("failed to iterate history: %w", err))
		}
	}
}

// ComputeStats counts entries by type and outcome.
func (l *SQLiteLedger) ComputeStats(ctx context.Context) (*service.HistoryStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT document_type, outcome, COUNT(*)
		FROM history
		GROUP BY document_type, outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute history stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := newHistoryStats()
	for rows.Next() {
		var (
			docType string
			outcome string
			count   int
		)
		if err := rows.Scan(&docType, &outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan history stats: %w", err)
		}
		stats.add(model.DocumentType(docType), model.Outcome(outcome), count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history stats: %w", err)
	}
	return stats.HistoryStats, nil
}

func filterClause(filter service.HistoryFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filter.Type != nil {
		conditions = append(conditions, "document_type = ?")
		args = append(args, string(*filter.Type))
	}
	if filter.Outcome != nil {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(*filter.Outcome))
	}
	if filter.PatternID != "" {
		conditions = append(conditions, "pattern_id = ?")
		args = append(args, filter.PatternID)
	}
	if filter.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(timestampLayout))
	}
	if filter.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(timestampLayout))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanEntry(rows *sql.Rows) (model.HistoryEntry, error) {
	var (
		entry     model.HistoryEntry
		timestamp string
		docType   string
		fields    string
		outcome   string
	)
	if err := rows.Scan(&timestamp, &entry.OriginalName, &entry.NewName, &docType, &fields, &entry.PatternID, &outcome, &entry.Reason); err != nil {
		return entry, fmt.Errorf("failed to scan history entry: %w", err)
	}

	ts, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return entry, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}
	entry.Timestamp = ts
	entry.DocumentType = model.DocumentType(docType)
	entry.Outcome = model.Outcome(outcome)
	if err := json.Unmarshal([]byte(fields), &entry.Fields); err != nil {
		return entry, fmt.Errorf("invalid fields for %s: %w", entry.OriginalName, err)
	}
	return entry, nil
}
