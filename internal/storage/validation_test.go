package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name: "valid context",
			ctx:  context.Background(),
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNilContext)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	assert.NoError(t, validateString("receipt_default", "id"))
	assert.ErrorIs(t, validateString("", "id"), ErrEmptyString)
	assert.ErrorIs(t, validateString("   ", "id"), ErrEmptyString)
}

func TestValidateEntry(t *testing.T) {
	valid := func() model.HistoryEntry {
		return model.HistoryEntry{
			Timestamp:    time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			OriginalName: "scan001.pdf",
			NewName:      "2024-03-15 - Amazon - 19.99.pdf",
			DocumentType: model.DocumentReceipt,
			PatternID:    "receipt_default",
			Outcome:      model.OutcomeApplied,
		}
	}

	tests := []struct {
		mutate  func(*model.HistoryEntry)
		name    string
		wantErr bool
	}{
		{name: "valid applied entry", mutate: func(*model.HistoryEntry) {}},
		{name: "failed entry without new name", mutate: func(e *model.HistoryEntry) {
			e.Outcome = model.OutcomeFailed
			e.NewName = ""
			e.PatternID = ""
		}},
		{name: "failed entry without type", mutate: func(e *model.HistoryEntry) {
			e.Outcome = model.OutcomeFailed
			e.DocumentType = ""
		}},
		{name: "applied entry without type", wantErr: true, mutate: func(e *model.HistoryEntry) { e.DocumentType = "" }},
		{name: "missing timestamp", wantErr: true, mutate: func(e *model.HistoryEntry) { e.Timestamp = time.Time{} }},
		{name: "missing original name", wantErr: true, mutate: func(e *model.HistoryEntry) { e.OriginalName = " " }},
		{name: "unknown type", wantErr: true, mutate: func(e *model.HistoryEntry) { e.DocumentType = "spaceship" }},
		{name: "unknown outcome", wantErr: true, mutate: func(e *model.HistoryEntry) { e.Outcome = "maybe" }},
		{name: "applied without pattern", wantErr: true, mutate: func(e *model.HistoryEntry) { e.PatternID = "" }},
		{name: "applied without new name", wantErr: true, mutate: func(e *model.HistoryEntry) { e.NewName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid()
			tt.mutate(&entry)
			err := validateEntry(&entry)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidEntry)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
