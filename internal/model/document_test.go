package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		input string
		want  DocumentType
	}{
		{input: "receipt", want: DocumentReceipt},
		{input: "Tax Document", want: DocumentTaxDocument},
		{input: "tax_document", want: DocumentTaxDocument},
		{input: "BANK-STATEMENT", want: DocumentBankStatement},
		{input: " general ", want: DocumentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDocumentType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDocumentType("spaceship")
	assert.ErrorIs(t, err, ErrUnknownDocumentType)
}

func TestDocumentTypes_Catalog(t *testing.T) {
	types := DocumentTypes()
	assert.Len(t, types, 15)

	for _, docType := range types {
		info, ok := docType.Info()
		require.True(t, ok, docType)
		assert.NotEmpty(t, info.Name)
		assert.NotEmpty(t, info.Description)
		assert.NotEmpty(t, info.ExtractFields)
	}

	assert.Equal(t, "Tax Document", DocumentTaxDocument.DisplayName())
	assert.Equal(t, "spaceship", DocumentType("spaceship").DisplayName())
}

func TestDocumentType_Text(t *testing.T) {
	data, err := json.Marshal(map[DocumentType]int{DocumentBankStatement: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bank_statement":1}`, string(data))

	var decoded struct {
		Type DocumentType `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Bank Statement"}`), &decoded))
	assert.Equal(t, DocumentBankStatement, decoded.Type)

	_, err = json.Marshal(struct{ T DocumentType }{T: "spaceship"})
	assert.ErrorIs(t, err, ErrUnknownDocumentType)
}

func TestParseOutcome(t *testing.T) {
	got, err := ParseOutcome("dry-run")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDryRun, got)

	got, err = ParseOutcome("Skipped Collision")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedCollision, got)

	_, err = ParseOutcome("renamed")
	assert.Error(t, err)
}

func TestPatternRule_MatchesCriteria(t *testing.T) {
	tests := []struct {
		fields Fields
		rule   PatternRule
		name   string
		want   bool
	}{
		{
			name:   "rule without criteria matches everything",
			rule:   PatternRule{},
			fields: Fields{},
			want:   true,
		},
		{
			name:   "keyword found in description",
			rule:   PatternRule{MatchKeywords: []string{"1099"}},
			fields: Fields{FieldDescription: "Form 1099-INT"},
			want:   true,
		},
		{
			name:   "keyword matching ignores case",
			rule:   PatternRule{MatchKeywords: []string{"EOB"}},
			fields: Fields{FieldTitle: "Explanation of benefits (eob)"},
			want:   true,
		},
		{
			name:   "institution matches bank name",
			rule:   PatternRule{MatchInstitutions: []string{"chase"}},
			fields: Fields{FieldBankName: "JPMorgan Chase"},
			want:   true,
		},
		{
			name:   "institution is not matched against description",
			rule:   PatternRule{MatchInstitutions: []string{"chase"}},
			fields: Fields{FieldDescription: "chase statement"},
		},
		{
			name:   "no match",
			rule:   PatternRule{MatchKeywords: []string{"W-2"}},
			fields: Fields{FieldDescription: "Utility bill"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.MatchesCriteria(tt.fields))
		})
	}
}
