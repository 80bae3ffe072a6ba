// Package template parses naming templates such as
// "{Date:YYYY-MM-DD} - {Merchant} - {Amount}" and renders them against
// extracted document fields.
package template

import (
	"strings"

	"github.com/Veraticus/rename-agent/internal/model"
)

// Token is one element of a parsed template: either literal text or a field placeholder.
type Token struct {
	Literal string
	Field   model.FieldName
	Format  string
}

// IsField reports whether the token is a field placeholder.
func (t Token) IsField() bool {
	return t.Field != ""
}

// String re-serializes the token in template syntax.
func (t Token) String() string {
	if !t.IsField() {
		return t.Literal
	}
	if t.Format == "" {
		return "{" + string(t.Field) + "}"
	}
	return "{" + string(t.Field) + ":" + t.Format + "}"
}

// Tokens is a parsed template in rendering order.
type Tokens []Token

// String re-serializes the tokens into an equivalent template string.
func (ts Tokens) String() string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(t.String())
	}
	return b.String()
}

// Fields returns the distinct fields referenced, in first-use order.
func (ts Tokens) Fields() []model.FieldName {
	seen := make(map[model.FieldName]bool)
	var fields []model.FieldName
	for _, t := range ts {
		if t.IsField() && !seen[t.Field] {
			seen[t.Field] = true
			fields = append(fields, t.Field)
		}
	}
	return fields
}

// FieldTokens returns only the field placeholders.
func (ts Tokens) FieldTokens() Tokens {
	var fields Tokens
	for _, t := range ts {
		if t.IsField() {
			fields = append(fields, t)
		}
	}
	return fields
}
