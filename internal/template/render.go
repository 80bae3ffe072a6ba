package template

import (
	"fmt"
	"strings"

	"github.com/Veraticus/rename-agent/internal/model"
)

type dateFormat struct {
	render    func(model.Date) string
	precision model.DatePrecision
}

var dateFormats = map[string]dateFormat{
	"YYYY-MM-DD": {precision: model.PrecisionDay, render: func(d model.Date) string {
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}},
	"YYYYMMDD": {precision: model.PrecisionDay, render: func(d model.Date) string {
		return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
	}},
	"YYYY-MM": {precision: model.PrecisionMonth, render: func(d model.Date) string {
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	}},
	"MM-DD": {precision: model.PrecisionDay, render: func(d model.Date) string {
		return fmt.Sprintf("%02d-%02d", d.Month, d.Day)
	}},
	"YYYY": {precision: model.PrecisionYear, render: func(d model.Date) string {
		return fmt.Sprintf("%04d", d.Year)
	}},
}

// Render substitutes every field token from fields and concatenates the
// result. It fails on the first field that is absent or cannot be formatted.
func (ts Tokens) Render(fields model.Fields) (string, error) {
	var b strings.Builder
	for _, t := range ts {
		if !t.IsField() {
			b.WriteString(t.Literal)
			continue
		}
		value, err := renderField(t, fields)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

// Render is a convenience for tokens.Render(fields).
func Render(tokens Tokens, fields model.Fields) (string, error) {
	return tokens.Render(fields)
}

// Unresolved returns the render error of every field token that cannot be
// rendered, in template order and without repeats per field.
func (ts Tokens) Unresolved(fields model.Fields) []*RenderError {
	var problems []*RenderError
	seen := make(map[model.FieldName]bool)
	for _, t := range ts.FieldTokens() {
		if _, err := renderField(t, fields); err != nil && !seen[t.Field] {
			seen[t.Field] = true
			problems = append(problems, err)
		}
	}
	return problems
}

// Coverage is the fraction of field tokens that render successfully.
func (ts Tokens) Coverage(fields model.Fields) float64 {
	fieldTokens := ts.FieldTokens()
	if len(fieldTokens) == 0 {
		return 0
	}
	resolved := 0
	for _, t := range fieldTokens {
		if _, err := renderField(t, fields); err == nil {
			resolved++
		}
	}
	return float64(resolved) / float64(len(fieldTokens))
}

func renderField(t Token, fields model.Fields) (string, *RenderError) {
	value, ok := fields.Get(t.Field)
	if !ok {
		return "", &RenderError{Kind: ErrMissingField, Field: t.Field}
	}

	switch t.Field.Kind() {
	case model.KindDate:
		return renderDate(t, value)
	case model.KindAmount:
		amount, err := model.ParseAmount(value)
		if err != nil {
			return "", &RenderError{Kind: ErrInvalidAmount, Field: t.Field, Value: value}
		}
		return amount.StringFixed(2), nil
	default:
		return value, nil
	}
}

func renderDate(t Token, value string) (string, *RenderError) {
	date, err := model.ParseDate(value)
	if err != nil {
		return "", &RenderError{Kind: ErrInvalidDate, Field: t.Field, Value: value, Want: "a date"}
	}

	format := t.Format
	if format == "" {
		if t.Field == model.FieldYear {
			format = "YYYY"
		} else {
			return date.String(), nil
		}
	}

	spec := dateFormats[format]
	if !date.Covers(spec.precision) {
		return "", &RenderError{Kind: ErrInsufficientPrecision, Field: t.Field, Value: value, Want: format}
	}
	return spec.render(date), nil
}
