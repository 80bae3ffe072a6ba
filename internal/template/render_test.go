package template

import (
	"testing"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_Render(t *testing.T) {
	tests := []struct {
		fields   model.Fields
		wantErr  error
		name     string
		template string
		want     string
		errField model.FieldName
	}{
		{
			name:     "receipt end to end",
			template: "{Date:YYYY-MM-DD} - {Merchant} - {Amount}",
			fields: model.Fields{
				model.FieldDate:     "2024-03-15",
				model.FieldMerchant: "Amazon",
				model.FieldAmount:   "19.99",
			},
			want: "2024-03-15 - Amazon - 19.99",
		},
		{
			name:     "amount is fixed to two decimals",
			template: "{Amount}",
			fields:   model.Fields{model.FieldAmount: "$1,234.5"},
			want:     "1234.50",
		},
		{
			name:     "amount keeps precision before rounding",
			template: "{Amount}",
			fields:   model.Fields{model.FieldAmount: "0.105"},
			want:     "0.11",
		},
		{
			name:     "month format",
			template: "{Date:YYYY-MM} - {Bank Name} - Statement",
			fields: model.Fields{
				model.FieldDate:     "2024-03-15",
				model.FieldBankName: "Chase",
			},
			want: "2024-03 - Chase - Statement",
		},
		{
			name:     "month format from month precision value",
			template: "{Date:YYYY-MM}",
			fields:   model.Fields{model.FieldDate: "2024-03"},
			want:     "2024-03",
		},
		{
			name:     "compact date",
			template: "{Date:YYYYMMDD}",
			fields:   model.Fields{model.FieldDate: "March 5, 2024"},
			want:     "20240305",
		},
		{
			name:     "year without format",
			template: "{Year} - W-2 - {Institution}",
			fields: model.Fields{
				model.FieldYear:        "2023",
				model.FieldInstitution: "Acme Corp",
			},
			want: "2023 - W-2 - Acme Corp",
		},
		{
			name:     "date without format keeps own precision",
			template: "{Date}",
			fields:   model.Fields{model.FieldDate: "2024-03"},
			want:     "2024-03",
		},
		{
			name:     "text values are trimmed",
			template: "[{Merchant}]",
			fields:   model.Fields{model.FieldMerchant: "  Amazon  "},
			want:     "[Amazon]",
		},
		{
			name:     "missing field",
			template: "{Date:YYYY-MM-DD} - {Merchant}",
			fields:   model.Fields{model.FieldMerchant: "Amazon"},
			wantErr:  ErrMissingField,
			errField: model.FieldDate,
		},
		{
			name:     "empty string counts as missing",
			template: "{Merchant}",
			fields:   model.Fields{model.FieldMerchant: "   "},
			wantErr:  ErrMissingField,
			errField: model.FieldMerchant,
		},
		{
			name:     "insufficient precision",
			template: "{Date:YYYY-MM-DD}",
			fields:   model.Fields{model.FieldDate: "2024"},
			wantErr:  ErrInsufficientPrecision,
			errField: model.FieldDate,
		},
		{
			name:     "unparseable date",
			template: "{Date:YYYY}",
			fields:   model.Fields{model.FieldDate: "sometime last spring"},
			wantErr:  ErrInvalidDate,
			errField: model.FieldDate,
		},
		{
			name:     "quarter is not a date",
			template: "{Date:YYYY}",
			fields:   model.Fields{model.FieldDate: "Q3 2024"},
			wantErr:  ErrInvalidDate,
			errField: model.FieldDate,
		},
		{
			name:     "invalid amount",
			template: "{Amount}",
			fields:   model.Fields{model.FieldAmount: "about twenty"},
			wantErr:  ErrInvalidAmount,
			errField: model.FieldAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Parse(tt.template)
			require.NoError(t, err)

			got, err := tokens.Render(tt.fields)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var renderErr *RenderError
				require.ErrorAs(t, err, &renderErr)
				assert.Equal(t, tt.errField, renderErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_MissingFieldNamesField(t *testing.T) {
	tokens := MustParse("{Date:YYYY-MM-DD} - {Merchant}")
	_, err := Render(tokens, model.Fields{model.FieldMerchant: "Amazon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Date")
}

func TestRender_Deterministic(t *testing.T) {
	tokens := MustParse("{Date:YYYY-MM-DD} - {Merchant} - {Amount}")
	fields := model.Fields{
		model.FieldDate:     "2024-03-15",
		model.FieldMerchant: "Amazon",
		model.FieldAmount:   "19.99",
	}

	first, err := tokens.Render(fields)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := tokens.Render(fields)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTokens_UnresolvedAndCoverage(t *testing.T) {
	tokens := MustParse("{Date:YYYY-MM-DD} - {Merchant} - {Amount} - {Merchant}")
	fields := model.Fields{
		model.FieldDate:   "2024",
		model.FieldAmount: "12.00",
	}

	problems := tokens.Unresolved(fields)
	require.Len(t, problems, 2)
	assert.Equal(t, model.FieldDate, problems[0].Field)
	assert.ErrorIs(t, problems[0], ErrInsufficientPrecision)
	assert.Equal(t, model.FieldMerchant, problems[1].Field)
	assert.ErrorIs(t, problems[1], ErrMissingField)

	assert.InDelta(t, 0.25, tokens.Coverage(fields), 0.0001)
	assert.InDelta(t, 0.0, MustParse("{Title}").Coverage(nil), 0.0001)
}
