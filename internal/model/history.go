package model

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the result of one rename decision.
type Outcome string

// Outcome constants.
const (
	OutcomeApplied          Outcome = "applied"
	OutcomeDryRun           Outcome = "dry_run"
	OutcomeFailed           Outcome = "failed"
	OutcomeSkippedCollision Outcome = "skipped_collision"
)

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeApplied, OutcomeDryRun, OutcomeFailed, OutcomeSkippedCollision}
}

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeApplied, OutcomeDryRun, OutcomeFailed, OutcomeSkippedCollision:
		return true
	}
	return false
}

// ParseOutcome accepts the wire name, also with hyphens ("dry-run").
func ParseOutcome(s string) (Outcome, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	o := Outcome(strings.NewReplacer("-", "_", " ", "_").Replace(key))
	if !o.IsValid() {
		return "", fmt.Errorf("unknown outcome %q", s)
	}
	return o, nil
}

// HistoryEntry is an immutable record of one rename decision.
type HistoryEntry struct {
	Timestamp    time.Time    `json:"timestamp"`
	Fields       Fields       `json:"fields"`
	OriginalName string       `json:"originalName"`
	NewName      string       `json:"newName"`
	DocumentType DocumentType `json:"documentType,omitempty"`
	PatternID    string       `json:"patternId"`
	Outcome      Outcome      `json:"outcome"`
	Reason       string       `json:"reason,omitempty"`
}
