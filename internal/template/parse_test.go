package template

import (
	"errors"
	"testing"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		wantErr  error
		name     string
		template string
		want     Tokens
	}{
		{
			name:     "receipt template",
			template: "{Date:YYYY-MM-DD} - {Merchant} - {Amount}",
			want: Tokens{
				{Field: model.FieldDate, Format: "YYYY-MM-DD"},
				{Literal: " - "},
				{Field: model.FieldMerchant},
				{Literal: " - "},
				{Field: model.FieldAmount},
			},
		},
		{
			name:     "multi word field names",
			template: "{Date:YYYY-MM} - {Bank Name} - {Last 4 Digits}",
			want: Tokens{
				{Field: model.FieldDate, Format: "YYYY-MM"},
				{Literal: " - "},
				{Field: model.FieldBankName},
				{Literal: " - "},
				{Field: model.FieldLast4Digits},
			},
		},
		{
			name:     "literal whitespace is kept verbatim",
			template: "  Statement\t{Year}  ",
			want: Tokens{
				{Literal: "  Statement\t"},
				{Field: model.FieldYear},
				{Literal: "  "},
			},
		},
		{
			name:     "year accepts explicit YYYY",
			template: "{Year:YYYY}",
			want:     Tokens{{Field: model.FieldYear, Format: "YYYY"}},
		},
		{
			name:     "literal only",
			template: "Scan",
			want:     Tokens{{Literal: "Scan"}},
		},
		{
			name:     "empty template",
			template: "",
			want:     nil,
		},
		{
			name:     "unknown field",
			template: "{Date} - {Items}",
			wantErr:  ErrUnknownField,
		},
		{
			name:     "field names are case sensitive",
			template: "{merchant}",
			wantErr:  ErrUnknownField,
		},
		{
			name:     "unclosed brace",
			template: "{Date - {Merchant}",
			wantErr:  ErrMalformedToken,
		},
		{
			name:     "brace never closed",
			template: "{Merchant",
			wantErr:  ErrMalformedToken,
		},
		{
			name:     "stray closing brace",
			template: "Merchant}",
			wantErr:  ErrMalformedToken,
		},
		{
			name:     "nested braces",
			template: "{{Merchant}}",
			wantErr:  ErrMalformedToken,
		},
		{
			name:     "empty placeholder",
			template: "{}",
			wantErr:  ErrMalformedToken,
		},
		{
			name:     "empty format",
			template: "{Date:}",
			wantErr:  ErrMalformedToken,
		},
		{
			name:     "unsupported date format",
			template: "{Date:DD/MM/YYYY}",
			wantErr:  ErrUnsupportedFormat,
		},
		{
			name:     "format on text field",
			template: "{Merchant:upper}",
			wantErr:  ErrUnsupportedFormat,
		},
		{
			name:     "format on amount field",
			template: "{Amount:0.00}",
			wantErr:  ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.template)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var parseErr *ParseError
				require.True(t, errors.As(err, &parseErr))
				assert.Equal(t, tt.template, parseErr.Template)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_ErrorNamesOffendingToken(t *testing.T) {
	_, err := Parse("{Date:YYYY} - {Vendor}")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "{Vendor}", parseErr.Token)
	assert.Equal(t, 14, parseErr.Pos)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestValidate_RequiresFieldToken(t *testing.T) {
	_, err := Validate("Just a literal")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFieldTokens)

	tokens, err := Validate("Scan {Date}")
	require.NoError(t, err)
	assert.Len(t, tokens.FieldTokens(), 1)
}

func TestTokens_StringRoundTrip(t *testing.T) {
	templates := []string{
		"{Date:YYYY-MM-DD} - {Merchant} - {Amount}",
		"{Year} - K-1 - {Institution}",
		"{Date:YYYY-MM} - {Service Provider} - {Account Number}",
		"{Description} - {Date:YYYY}",
		"  spaced  {Title}\t",
		"{Date:YYYYMMDD}_{Merchant}",
	}

	for _, tmpl := range templates {
		t.Run(tmpl, func(t *testing.T) {
			tokens, err := Parse(tmpl)
			require.NoError(t, err)

			serialized := tokens.String()
			assert.Equal(t, tmpl, serialized)

			reparsed, err := Parse(serialized)
			require.NoError(t, err)
			assert.Equal(t, tokens, reparsed)
		})
	}
}

func TestTokens_Fields(t *testing.T) {
	tokens := MustParse("{Date:YYYY} - {Merchant} - {Date:MM-DD}")
	assert.Equal(t, []model.FieldName{model.FieldDate, model.FieldMerchant}, tokens.Fields())
	assert.Len(t, tokens.FieldTokens(), 3)
}

func TestMustParse_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustParse("{Nope}") })
}
