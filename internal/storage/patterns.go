package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/pattern"
	"github.com/Veraticus/rename-agent/internal/service"
	"github.com/Veraticus/rename-agent/internal/template"
)

// PatternsFileName is the store file inside the data directory.
const PatternsFileName = "patterns.json"

// learnedPriority matches the priority the keyword-specific catalog rules carry.
const learnedPriority = 10

// Ensure PatternStore implements the service and selector interfaces.
var (
	_ service.PatternStore = (*PatternStore)(nil)
	_ pattern.Source       = (*PatternStore)(nil)
)

// PatternStore keeps naming rules in patterns.json. Every call re-reads the
// file under a lock, so several processes can share one data directory.
type PatternStore struct {
	now   func() time.Time
	newID func() string
	path  string
}

// patternSet is the in-memory form of patterns.json.
type patternSet map[model.DocumentType][]model.PatternRule

// NewPatternStore opens the store in dataDir, creating the directory if needed.
// The file itself is created on the first write.
func NewPatternStore(dataDir string) (*PatternStore, error) {
	if err := validateString(dataDir, "dataDir"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &PatternStore{
		path:  filepath.Join(dataDir, PatternsFileName),
		now:   func() time.Time { return time.Now().UTC() },
		newID: newCustomID,
	}, nil
}

// Path returns the location of patterns.json.
func (s *PatternStore) Path() string {
	return s.path
}

func newCustomID() string {
	return "custom_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// PatternsFor returns the active rules of a type in store order, seeding the
// built-in catalog the first time the type is seen.
func (s *PatternStore) PatternsFor(ctx context.Context, docType model.DocumentType) ([]model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDocumentType(docType); err != nil {
		return nil, err
	}

	var active []model.PatternRule
	err := s.mutate(ctx, func(set patternSet) (bool, error) {
		seeded := s.seed(set, docType)
		for _, rule := range set[docType] {
			if rule.IsActive() {
				active = append(active, rule.Clone())
			}
		}
		return seeded, nil
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}

// AddPattern registers a learned rule after validating its template.
func (s *PatternStore) AddPattern(ctx context.Context, docType model.DocumentType, tmpl string, opts service.PatternOptions) (*model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDocumentType(docType); err != nil {
		return nil, err
	}
	tokens, err := template.Validate(tmpl)
	if err != nil {
		return nil, err
	}

	var added model.PatternRule
	err = s.mutate(ctx, func(set patternSet) (bool, error) {
		s.seed(set, docType)
		if err := checkDuplicate(set[docType], tokens, ""); err != nil {
			return false, err
		}

		added = s.newRule(set, docType, tmpl)
		added.Name = opts.Name
		if added.Name == "" {
			added.Name = fmt.Sprintf("Custom %s Pattern", docType.DisplayName())
		}
		added.Description = opts.Description
		added.MatchKeywords = cleanList(opts.MatchKeywords)
		added.MatchInstitutions = cleanList(opts.MatchInstitutions)
		added.Priority = opts.Priority

		set[docType] = append(set[docType], added)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	common.LogInfo("Added pattern", common.Fields{
		"pattern_id":    added.ID,
		"document_type": docType,
		"template":      tmpl,
	})
	return &added, nil
}

// UpdatePattern applies the non-nil parts of update. A new template is
// validated and duplicate-checked like AddPattern.
func (s *PatternStore) UpdatePattern(ctx context.Context, id string, update service.PatternUpdate) (*model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var tokens template.Tokens
	if update.Template != nil {
		var err error
		if tokens, err = template.Validate(*update.Template); err != nil {
			return nil, err
		}
	}

	var updated model.PatternRule
	err := s.mutate(ctx, func(set patternSet) (bool, error) {
		rule := findRule(set, id)
		if rule == nil {
			return false, fmt.Errorf("pattern %s: %w", id, common.ErrNotFound)
		}

		if update.Template != nil {
			if err := checkDuplicate(set[rule.DocumentType], tokens, id); err != nil {
				return false, err
			}
			rule.Template = *update.Template
		}
		if update.Name != nil {
			rule.Name = *update.Name
		}
		if update.Description != nil {
			rule.Description = *update.Description
		}
		if update.MatchKeywords != nil {
			rule.MatchKeywords = cleanList(update.MatchKeywords)
		}
		if update.MatchInstitutions != nil {
			rule.MatchInstitutions = cleanList(update.MatchInstitutions)
		}
		if update.Priority != nil {
			rule.Priority = *update.Priority
		}

		updated = rule.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// LearnPattern records that documents of a type, optionally from one
// institution, should be named with tmpl. An active rule already keyed to the
// institution has its template replaced; an active rule with the same
// template is returned as is; otherwise a new learned rule is added.
func (s *PatternStore) LearnPattern(ctx context.Context, docType model.DocumentType, tmpl, institution string) (*model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDocumentType(docType); err != nil {
		return nil, err
	}
	tokens, err := template.Validate(tmpl)
	if err != nil {
		return nil, err
	}
	institution = strings.TrimSpace(institution)

	var learned model.PatternRule
	err = s.mutate(ctx, func(set patternSet) (bool, error) {
		seeded := s.seed(set, docType)
		rules := set[docType]

		// Check for a rule already serving this institution
		if institution != "" {
			for i := range rules {
				if !rules[i].IsActive() || !rules[i].ServesInstitution(institution) {
					continue
				}
				if err := checkDuplicate(rules, tokens, rules[i].ID); err != nil {
					return false, err
				}
				rules[i].Template = tmpl
				learned = rules[i].Clone()
				return true, nil
			}
		}

		// Check for an identical template
		if dup := duplicateOf(rules, tokens, ""); dup != nil {
			learned = dup.Clone()
			return seeded, nil
		}

		learned = s.newRule(set, docType, tmpl)
		learned.Priority = learnedPriority
		if institution != "" {
			learned.Name = institution + " Pattern"
			learned.MatchInstitutions = []string{institution}
		} else {
			learned.Name = fmt.Sprintf("Learned %s Pattern", docType.DisplayName())
		}
		set[docType] = append(rules, learned)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	common.LogInfo("Learned pattern", common.Fields{
		"pattern_id":    learned.ID,
		"document_type": docType,
		"institution":   institution,
	})
	return &learned, nil
}

// RetirePattern excludes a rule from selection while keeping its statistics.
// Retiring an already retired rule is a no-op.
func (s *PatternStore) RetirePattern(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.mutate(ctx, func(set patternSet) (bool, error) {
		rule := findRule(set, id)
		if rule == nil {
			return false, fmt.Errorf("pattern %s: %w", id, common.ErrNotFound)
		}
		if !rule.IsActive() {
			return false, nil
		}

		active := 0
		for _, r := range set[rule.DocumentType] {
			if r.IsActive() {
				active++
			}
		}
		if active <= 1 {
			return false, fmt.Errorf("pattern %s: %w", id, common.ErrLastActivePattern)
		}

		retiredAt := s.now()
		rule.RetiredAt = &retiredAt
		return true, nil
	})
}

// RecordUsage increments the rule's usage count and stamps its last use.
// Retired rules are counted too.
func (s *PatternStore) RecordUsage(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.mutate(ctx, func(set patternSet) (bool, error) {
		rule := findRule(set, id)
		if rule == nil {
			return false, fmt.Errorf("pattern %s: %w", id, common.ErrNotFound)
		}
		usedAt := s.now()
		rule.UsageCount++
		rule.LastUsed = &usedAt
		return true, nil
	})
}

// GetPattern returns a single rule, retired or not.
func (s *PatternStore) GetPattern(ctx context.Context, id string) (*model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var found model.PatternRule
	err := s.view(ctx, func(set patternSet) error {
		rule := findRule(set, id)
		if rule == nil {
			return fmt.Errorf("pattern %s: %w", id, common.ErrNotFound)
		}
		found = rule.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// AllPatterns returns every rule, retired ones included, grouped by type in
// catalog order. Types not seen yet are seeded first so the listing is complete.
func (s *PatternStore) AllPatterns(ctx context.Context) ([]model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var all []model.PatternRule
	err := s.mutate(ctx, func(set patternSet) (bool, error) {
		changed := false
		for _, docType := range model.DocumentTypes() {
			if s.seed(set, docType) {
				changed = true
			}
			for _, rule := range set[docType] {
				all = append(all, rule.Clone())
			}
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Stats summarizes the rules currently stored.
func (s *PatternStore) Stats(ctx context.Context) (*service.PatternStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	stats := &service.PatternStats{ByType: make(map[model.DocumentType]service.TypeStats)}
	err := s.view(ctx, func(set patternSet) error {
		for docType, rules := range set {
			typeStats := stats.ByType[docType]
			for _, rule := range rules {
				stats.TotalPatterns++
				typeStats.Patterns++
				typeStats.Uses += rule.UsageCount
				if rule.IsActive() {
					stats.ActivePatterns++
				}
				if rule.IsLearned() {
					stats.LearnedCount++
				}
			}
			stats.ByType[docType] = typeStats
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// seed copies the catalog into the set when the type has no rules yet.
func (s *PatternStore) seed(set patternSet, docType model.DocumentType) bool {
	if len(set[docType]) > 0 {
		return false
	}
	defaults := pattern.Defaults(docType)
	if len(defaults) == 0 {
		return false
	}

	createdAt := s.now()
	for i := range defaults {
		defaults[i].CreatedAt = createdAt
	}
	set[docType] = defaults

	common.LogDebug("Seeded default patterns", common.Fields{
		"document_type": docType,
		"count":         len(defaults),
	})
	return true
}

func (s *PatternStore) newRule(set patternSet, docType model.DocumentType, tmpl string) model.PatternRule {
	id := s.newID()
	for findRule(set, id) != nil {
		id = s.newID()
	}
	return model.PatternRule{
		ID:           id,
		DocumentType: docType,
		Template:     tmpl,
		Origin:       model.OriginLearned,
		CreatedAt:    s.now(),
	}
}

// mutate runs fn under the exclusive lock and persists the set when fn
// reports a change.
func (s *PatternStore) mutate(ctx context.Context, fn func(patternSet) (bool, error)) error {
	return withFileLock(ctx, s.path, true, func() error {
		set, err := s.load()
		if err != nil {
			return err
		}
		changed, err := fn(set)
		if err != nil || !changed {
			return err
		}
		return s.save(set)
	})
}

// view runs fn under the shared lock.
func (s *PatternStore) view(ctx context.Context, fn func(patternSet) error) error {
	return withFileLock(ctx, s.path, false, func() error {
		set, err := s.load()
		if err != nil {
			return err
		}
		return fn(set)
	})
}

func (s *PatternStore) load() (patternSet, error) {
	data, err := readStoreFile(s.path)
	if err != nil {
		return nil, err
	}
	set := make(patternSet)
	if data == nil {
		return set, nil
	}

	var raw map[string][]model.PatternRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &common.CorruptStoreError{Path: s.path, Err: err}
	}

	seen := make(map[string]bool)
	for key, rules := range raw {
		docType := model.DocumentType(key)
		if !docType.IsValid() {
			return nil, &common.CorruptStoreError{Path: s.path, Err: fmt.Errorf("%w: %q", model.ErrUnknownDocumentType, key)}
		}
		for i := range rules {
			if rules[i].ID == "" {
				return nil, &common.CorruptStoreError{Path: s.path, Err: errors.New("pattern without id")}
			}
			if seen[rules[i].ID] {
				return nil, &common.CorruptStoreError{Path: s.path, Err: fmt.Errorf("duplicate pattern id %q", rules[i].ID)}
			}
			seen[rules[i].ID] = true
			rules[i].DocumentType = docType
		}
		set[docType] = rules
	}
	return set, nil
}

func (s *PatternStore) save(set patternSet) error {
	raw := make(map[string][]model.PatternRule, len(set))
	for docType, rules := range set {
		raw[string(docType)] = rules
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode patterns: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

// findRule returns a pointer into set so callers can mutate in place.
func findRule(set patternSet, id string) *model.PatternRule {
	for docType := range set {
		rules := set[docType]
		for i := range rules {
			if rules[i].ID == id {
				return &rules[i]
			}
		}
	}
	return nil
}

// duplicateOf returns the active rule whose template is equivalent to tokens.
func duplicateOf(rules []model.PatternRule, tokens template.Tokens, exceptID string) *model.PatternRule {
	canonical := tokens.String()
	for i := range rules {
		if !rules[i].IsActive() || rules[i].ID == exceptID {
			continue
		}
		existing := rules[i].Template
		if parsed, err := template.Parse(existing); err == nil {
			existing = parsed.String()
		}
		if existing == canonical {
			return &rules[i]
		}
	}
	return nil
}

func checkDuplicate(rules []model.PatternRule, tokens template.Tokens, exceptID string) error {
	if dup := duplicateOf(rules, tokens, exceptID); dup != nil {
		return fmt.Errorf("%w: pattern %s already uses %q", common.ErrDuplicateTemplate, dup.ID, dup.Template)
	}
	return nil
}

func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}
