// Package pattern chooses the naming pattern for a classified document.
package pattern

import (
	"context"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/template"
)

// Source supplies the active rules for a document type.
type Source interface {
	PatternsFor(ctx context.Context, docType model.DocumentType) ([]model.PatternRule, error)
}

// Chooser picks the best rule for a document.
type Chooser interface {
	// Select returns the winning rule with its rendered name, or a
	// NoSuitablePatternError when no rule can render the fields.
	Select(ctx context.Context, docType model.DocumentType, fields model.Fields) (*Selection, error)
}

// Selection is the outcome of a successful Select.
type Selection struct {
	Rendered   string
	Tokens     template.Tokens
	Pattern    model.PatternRule
	Confidence float64
}

// Candidate is one rule as evaluated against a document's fields.
type Candidate struct {
	Rendered      string
	Tokens        template.Tokens
	Missing       []model.FieldName
	Pattern       model.PatternRule
	Coverage      float64
	Renderable    bool
	CriteriaMatch bool
}

// Eligible reports whether the candidate can be chosen.
func (c Candidate) Eligible() bool {
	return c.Renderable && c.CriteriaMatch
}
