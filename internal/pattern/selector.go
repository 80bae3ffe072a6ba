package pattern

import (
	"context"
	"fmt"
	"sort"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/template"
)

// Ensure Selector implements Chooser.
var _ Chooser = (*Selector)(nil)

// Selector ranks the active rules of a type against a document's fields.
type Selector struct {
	source Source
}

// NewSelector creates a selector reading rules from source.
func NewSelector(source Source) *Selector {
	return &Selector{source: source}
}

// Select returns the best renderable rule for the document.
func (s *Selector) Select(ctx context.Context, docType model.DocumentType, fields model.Fields) (*Selection, error) {
	candidates, err := s.Rank(ctx, docType, fields)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if c.Eligible() {
			return &Selection{
				Pattern:    c.Pattern,
				Tokens:     c.Tokens,
				Rendered:   c.Rendered,
				Confidence: confidence(c.Pattern),
			}, nil
		}
	}

	return nil, noSuitable(docType, candidates)
}

// Rank evaluates every active rule of the type and returns them best first.
// Eligible candidates always precede ineligible ones.
func (s *Selector) Rank(ctx context.Context, docType model.DocumentType, fields model.Fields) ([]Candidate, error) {
	if !docType.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownDocumentType, string(docType))
	}

	rules, err := s.source.PatternsFor(ctx, docType)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns for %s: %w", docType, err)
	}

	candidates := make([]Candidate, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsActive() {
			continue
		}

		tokens, err := template.Parse(rule.Template)
		if err != nil {
			common.LogWarn("Skipping pattern with unparseable template", common.Fields{
				"pattern_id": rule.ID,
				"template":   rule.Template,
				"error":      err.Error(),
			})
			continue
		}

		candidate := Candidate{
			Pattern:       rule,
			Tokens:        tokens,
			Coverage:      tokens.Coverage(fields),
			CriteriaMatch: rule.MatchesCriteria(fields),
		}
		for _, problem := range tokens.Unresolved(fields) {
			candidate.Missing = append(candidate.Missing, problem.Field)
		}
		if len(candidate.Missing) == 0 {
			rendered, err := tokens.Render(fields)
			if err == nil {
				candidate.Rendered = rendered
				candidate.Renderable = true
			}
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Eligible() != b.Eligible() {
			return a.Eligible()
		}
		return outranks(a, b)
	})

	return candidates, nil
}

// outranks orders candidates by proven usage, then recency, then learned over
// built-in, then keyword-specific over general, then catalog priority.
func outranks(a, b Candidate) bool {
	ra, rb := a.Pattern, b.Pattern

	if ra.UsageCount != rb.UsageCount {
		return ra.UsageCount > rb.UsageCount
	}

	switch {
	case ra.LastUsed != nil && rb.LastUsed == nil:
		return true
	case ra.LastUsed == nil && rb.LastUsed != nil:
		return false
	case ra.LastUsed != nil && !ra.LastUsed.Equal(*rb.LastUsed):
		return ra.LastUsed.After(*rb.LastUsed)
	}

	if ra.IsLearned() != rb.IsLearned() {
		return ra.IsLearned()
	}

	if specific(a) != specific(b) {
		return specific(a)
	}

	return ra.Priority > rb.Priority
}

func specific(c Candidate) bool {
	return c.CriteriaMatch && c.Pattern.HasCriteria()
}

// confidence grows with usage and is boosted for learned or keyword-specific rules.
func confidence(rule model.PatternRule) float64 {
	score := 0.5
	if rule.HasCriteria() {
		score += 0.1
	}
	if rule.IsLearned() {
		score += 0.1
	}
	uses := float64(rule.UsageCount)
	score += 0.3 * uses / (uses + 2)
	if score > 1 {
		return 1
	}
	return score
}

// noSuitable reports the candidate with the highest coverage, preferring
// those whose criteria match, and ranking order on ties.
func noSuitable(docType model.DocumentType, candidates []Candidate) error {
	err := &NoSuitablePatternError{DocumentType: docType}

	var closest *Candidate
	for i := range candidates {
		c := &candidates[i]
		if closest == nil {
			closest = c
			continue
		}
		if c.CriteriaMatch != closest.CriteriaMatch {
			if c.CriteriaMatch {
				closest = c
			}
			continue
		}
		if c.Coverage > closest.Coverage {
			closest = c
		}
	}

	if closest != nil {
		err.ClosestID = closest.Pattern.ID
		err.Missing = closest.Missing
	}
	return err
}
