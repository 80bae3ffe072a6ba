package pattern

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	err   error
	rules []model.PatternRule
}

func (s staticSource) PatternsFor(_ context.Context, _ model.DocumentType) ([]model.PatternRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}

func rule(id, tmpl string, usage int, lastUsed *time.Time, origin model.Origin) model.PatternRule {
	return model.PatternRule{
		ID:           id,
		DocumentType: model.DocumentReceipt,
		Template:     tmpl,
		UsageCount:   usage,
		LastUsed:     lastUsed,
		Origin:       origin,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSelector_Select(t *testing.T) {
	ctx := context.Background()
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	receiptFields := model.Fields{
		model.FieldDate:     "2024-03-15",
		model.FieldMerchant: "Amazon",
		model.FieldAmount:   "19.99",
	}

	tests := []struct {
		fields       model.Fields
		name         string
		docType      model.DocumentType
		wantID       string
		wantRendered string
		rules        []model.PatternRule
	}{
		{
			name:         "catalog default renders",
			docType:      model.DocumentReceipt,
			rules:        Defaults(model.DocumentReceipt),
			fields:       receiptFields,
			wantID:       "receipt_default",
			wantRendered: "2024-03-15 - Amazon - 19.99",
		},
		{
			name:    "higher usage wins",
			docType: model.DocumentReceipt,
			rules: []model.PatternRule{
				rule("a", "{Date:YYYY-MM-DD} - {Merchant}", 1, nil, model.OriginBuiltin),
				rule("b", "{Merchant} - {Amount}", 5, nil, model.OriginBuiltin),
			},
			fields:       receiptFields,
			wantID:       "b",
			wantRendered: "Amazon - 19.99",
		},
		{
			name:    "equal usage prefers recent use",
			docType: model.DocumentReceipt,
			rules: []model.PatternRule{
				rule("a", "{Date:YYYY-MM-DD} - {Merchant}", 3, timePtr(earlier), model.OriginBuiltin),
				rule("b", "{Merchant} - {Amount}", 3, timePtr(later), model.OriginBuiltin),
			},
			fields: receiptFields,
			wantID: "b",
		},
		{
			name:    "used beats never used at equal count",
			docType: model.DocumentReceipt,
			rules: []model.PatternRule{
				rule("a", "{Date:YYYY-MM-DD} - {Merchant}", 0, nil, model.OriginLearned),
				rule("b", "{Merchant} - {Amount}", 0, timePtr(earlier), model.OriginBuiltin),
			},
			fields: receiptFields,
			wantID: "b",
		},
		{
			name:    "learned beats builtin at equal usage and recency",
			docType: model.DocumentReceipt,
			rules: []model.PatternRule{
				rule("builtin", "{Date:YYYY-MM-DD} - {Merchant}", 2, timePtr(earlier), model.OriginBuiltin),
				rule("learned", "{Merchant} - {Amount}", 2, timePtr(earlier), model.OriginLearned),
			},
			fields: receiptFields,
			wantID: "learned",
		},
		{
			name:    "unrenderable rule skipped despite higher usage",
			docType: model.DocumentReceipt,
			rules: []model.PatternRule{
				rule("needs-description", "{Date:YYYY-MM-DD} - {Description}", 10, nil, model.OriginBuiltin),
				rule("plain", "{Date:YYYY-MM-DD} - {Merchant}", 0, nil, model.OriginBuiltin),
			},
			fields:       receiptFields,
			wantID:       "plain",
			wantRendered: "2024-03-15 - Amazon",
		},
		{
			name:    "retired rule skipped",
			docType: model.DocumentReceipt,
			rules: []model.PatternRule{
				func() model.PatternRule {
					r := rule("retired", "{Merchant}", 50, nil, model.OriginLearned)
					r.RetiredAt = timePtr(later)
					return r
				}(),
				rule("active", "{Date:YYYY-MM-DD} - {Merchant}", 0, nil, model.OriginBuiltin),
			},
			fields: receiptFields,
			wantID: "active",
		},
		{
			name:    "keyword rule wins for matching document",
			docType: model.DocumentTaxDocument,
			rules:   Defaults(model.DocumentTaxDocument),
			fields: model.Fields{
				model.FieldYear:        "2023",
				model.FieldFormType:    "W-2",
				model.FieldInstitution: "Acme Corp",
			},
			wantID:       "tax_w2",
			wantRendered: "2023 - W-2 - Acme Corp",
		},
		{
			name:    "keyword rules excluded for other documents",
			docType: model.DocumentTaxDocument,
			rules:   Defaults(model.DocumentTaxDocument),
			fields: model.Fields{
				model.FieldYear:        "2023",
				model.FieldFormType:    "1098",
				model.FieldInstitution: "Big Bank",
			},
			wantID:       "tax_default",
			wantRendered: "2023 - 1098 - Big Bank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector := NewSelector(staticSource{rules: tt.rules})

			got, err := selector.Select(ctx, tt.docType, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.Pattern.ID)
			if tt.wantRendered != "" {
				assert.Equal(t, tt.wantRendered, got.Rendered)
			}
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func TestSelector_NoSuitablePattern(t *testing.T) {
	selector := NewSelector(staticSource{rules: Defaults(model.DocumentReceipt)})

	_, err := selector.Select(context.Background(), model.DocumentReceipt, model.Fields{
		model.FieldDate: "2024-03-15",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoSuitablePattern))

	var noSuitable *NoSuitablePatternError
	require.ErrorAs(t, err, &noSuitable)
	assert.Equal(t, "receipt_default", noSuitable.ClosestID)
	assert.Equal(t, []model.FieldName{model.FieldMerchant, model.FieldAmount}, noSuitable.Missing)
	assert.Contains(t, err.Error(), "Merchant")
}

func TestSelector_NoSuitablePatternReportsPrecision(t *testing.T) {
	selector := NewSelector(staticSource{rules: Defaults(model.DocumentBankStatement)})

	_, err := selector.Select(context.Background(), model.DocumentBankStatement, model.Fields{
		model.FieldDate:     "2024",
		model.FieldBankName: "Chase",
	})

	var noSuitable *NoSuitablePatternError
	require.ErrorAs(t, err, &noSuitable)
	assert.Equal(t, "bank_default", noSuitable.ClosestID)
	assert.Equal(t, []model.FieldName{model.FieldDate}, noSuitable.Missing)
}

func TestSelector_NoActivePatterns(t *testing.T) {
	selector := NewSelector(staticSource{})

	_, err := selector.Select(context.Background(), model.DocumentPhoto, model.Fields{})
	var noSuitable *NoSuitablePatternError
	require.ErrorAs(t, err, &noSuitable)
	assert.Empty(t, noSuitable.ClosestID)
}

func TestSelector_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewSelector(staticSource{}).Select(ctx, model.DocumentType("spaceship"), model.Fields{})
	assert.ErrorIs(t, err, model.ErrUnknownDocumentType)

	sourceErr := errors.New("disk on fire")
	_, err = NewSelector(staticSource{err: sourceErr}).Select(ctx, model.DocumentReceipt, model.Fields{})
	assert.ErrorIs(t, err, sourceErr)
}

func TestSelector_Rank(t *testing.T) {
	selector := NewSelector(staticSource{rules: Defaults(model.DocumentReceipt)})

	candidates, err := selector.Rank(context.Background(), model.DocumentReceipt, model.Fields{
		model.FieldDate:     "2024-03-15",
		model.FieldMerchant: "Amazon",
		model.FieldAmount:   "19.99",
	})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "receipt_default", candidates[0].Pattern.ID)
	assert.True(t, candidates[0].Eligible())
	assert.InDelta(t, 1.0, candidates[0].Coverage, 0.0001)

	assert.Equal(t, "receipt_detailed", candidates[1].Pattern.ID)
	assert.False(t, candidates[1].Eligible())
	assert.InDelta(t, 0.75, candidates[1].Coverage, 0.0001)
	assert.Equal(t, []model.FieldName{model.FieldDescription}, candidates[1].Missing)
}

func TestConfidence(t *testing.T) {
	fresh := confidence(model.PatternRule{Origin: model.OriginBuiltin})
	learned := confidence(model.PatternRule{Origin: model.OriginLearned})
	proven := confidence(model.PatternRule{Origin: model.OriginBuiltin, UsageCount: 20})
	maxed := confidence(model.PatternRule{
		Origin:        model.OriginLearned,
		UsageCount:    1_000_000,
		MatchKeywords: []string{"w2"},
	})

	assert.InDelta(t, 0.5, fresh, 0.0001)
	assert.Greater(t, learned, fresh)
	assert.Greater(t, proven, fresh)
	assert.LessOrEqual(t, maxed, 1.0)
}
