package engine

import (
	"context"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
)

// Appender is the part of the history ledger the engine writes to.
type Appender interface {
	Append(ctx context.Context, entry model.HistoryEntry) error
}

// ClassifierFunc adapts a function to service.Classifier.
type ClassifierFunc func(ctx context.Context, path string) (*service.Classification, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, path string) (*service.Classification, error) {
	return f(ctx, path)
}
