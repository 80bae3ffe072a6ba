package model

import (
	"strings"
	"time"
)

// Origin records where a pattern rule came from.
type Origin string

// Origin constants.
const (
	OriginBuiltin Origin = "builtin"
	OriginLearned Origin = "learned"
)

// PatternRule is one reusable naming template for a document type.
type PatternRule struct {
	CreatedAt         time.Time    `json:"createdAt"`
	LastUsed          *time.Time   `json:"lastUsed"`
	RetiredAt         *time.Time   `json:"retiredAt,omitempty"`
	ID                string       `json:"id"`
	DocumentType      DocumentType `json:"-"`
	Template          string       `json:"template"`
	Name              string       `json:"name,omitempty"`
	Description       string       `json:"description,omitempty"`
	Origin            Origin       `json:"origin"`
	MatchKeywords     []string     `json:"matchKeywords,omitempty"`
	MatchInstitutions []string     `json:"matchInstitutions,omitempty"`
	UsageCount        int          `json:"usageCount"`
	Priority          int          `json:"priority,omitempty"`
}

// IsActive reports whether the rule takes part in selection.
func (r *PatternRule) IsActive() bool {
	return r.RetiredAt == nil
}

// IsLearned reports whether the rule was registered by a user rather than seeded.
func (r *PatternRule) IsLearned() bool {
	return r.Origin == OriginLearned
}

// HasCriteria reports whether the rule only applies to documents matching
// specific keywords or institutions.
func (r *PatternRule) HasCriteria() bool {
	return len(r.MatchKeywords) > 0 || len(r.MatchInstitutions) > 0
}

// MatchesCriteria checks the rule's keywords against the document's text fields
// and its institutions against the institution-like fields. Rules without
// criteria match every document.
func (r *PatternRule) MatchesCriteria(fields Fields) bool {
	if !r.HasCriteria() {
		return true
	}

	var texts []string
	for _, name := range []FieldName{FieldDescription, FieldTitle, FieldInstitution, FieldMerchant, FieldFormType} {
		if value, ok := fields.Get(name); ok {
			texts = append(texts, value)
		}
	}
	docText := strings.ToLower(strings.Join(texts, " "))

	for _, keyword := range r.MatchKeywords {
		if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" && strings.Contains(docText, keyword) {
			return true
		}
	}

	for _, institution := range r.MatchInstitutions {
		institution = strings.ToLower(strings.TrimSpace(institution))
		if institution == "" {
			continue
		}
		for _, name := range []FieldName{FieldInstitution, FieldBankName, FieldServiceProvider} {
			if value, ok := fields.Get(name); ok && strings.Contains(strings.ToLower(value), institution) {
				return true
			}
		}
	}

	return false
}

// ServesInstitution reports whether institution is one of the rule's match institutions.
func (r *PatternRule) ServesInstitution(institution string) bool {
	for _, candidate := range r.MatchInstitutions {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(institution)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate store-owned slices or timestamps.
func (r PatternRule) Clone() PatternRule {
	clone := r
	if r.LastUsed != nil {
		lastUsed := *r.LastUsed
		clone.LastUsed = &lastUsed
	}
	if r.RetiredAt != nil {
		retiredAt := *r.RetiredAt
		clone.RetiredAt = &retiredAt
	}
	clone.MatchKeywords = append([]string(nil), r.MatchKeywords...)
	clone.MatchInstitutions = append([]string(nil), r.MatchInstitutions...)
	return clone
}
