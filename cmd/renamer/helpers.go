package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/rename-agent/internal/config"
	"github.com/Veraticus/rename-agent/internal/engine"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/pattern"
	"github.com/Veraticus/rename-agent/internal/service"
	"github.com/Veraticus/rename-agent/internal/storage"
)

// stores holds the opened pattern store and history ledger.
type stores struct {
	patterns *storage.PatternStore
	ledger   service.HistoryLedger
}

// openStores opens the stores under the configured data directory.
func openStores(ctx context.Context, cfg config.Config) (*stores, func(), error) {
	patterns, err := storage.NewPatternStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	var ledger service.HistoryLedger
	switch cfg.HistoryBackend {
	case config.HistorySQLite:
		sqlite, err := storage.NewSQLiteLedger(cfg.HistoryDBPath(), patterns)
		if err != nil {
			return nil, nil, err
		}
		// Run migrations
		if err := sqlite.Migrate(ctx); err != nil {
			_ = sqlite.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		ledger = sqlite
	default:
		ledger, err = storage.NewJSONLedger(cfg.DataDir, patterns)
		if err != nil {
			return nil, nil, err
		}
	}

	cleanup := func() {
		_ = ledger.Close()
	}
	return &stores{patterns: patterns, ledger: ledger}, cleanup, nil
}

// newEngine wires the selector and ledger into an engine.
func (s *stores) newEngine(cfg config.Config) *engine.Engine {
	return engine.NewWithConfig(pattern.NewSelector(s.patterns), s.ledger, engine.Config{
		MaxLength: cfg.MaxLength,
	})
}

// parseFieldFlags turns repeated "Name=Value" flags into fields.
func parseFieldFlags(values []string) (model.Fields, error) {
	raw := make(map[string]string, len(values))
	for _, value := range values {
		name, v, ok := strings.Cut(value, "=")
		if !ok {
			return nil, fmt.Errorf("invalid field %q: expected Name=Value", value)
		}
		raw[strings.TrimSpace(name)] = v
	}
	return model.NewFields(raw)
}

// parseOptionalType parses a --type flag, returning nil when it is empty.
func parseOptionalType(value string) (*model.DocumentType, error) {
	if value == "" {
		return nil, nil
	}
	docType, err := model.ParseDocumentType(value)
	if err != nil {
		return nil, err
	}
	return &docType, nil
}

// parseDay parses a YYYY-MM-DD flag in local time.
func parseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return day, nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		if minutes := int(duration.Minutes()); minutes > 1 {
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return "1 minute ago"
	case duration < 24*time.Hour:
		if hours := int(duration.Hours()); hours > 1 {
			return fmt.Sprintf("%d hours ago", hours)
		}
		return "1 hour ago"
	case duration < 7*24*time.Hour:
		if days := int(duration.Hours() / 24); days > 1 {
			return fmt.Sprintf("%d days ago", days)
		}
		return "yesterday"
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
