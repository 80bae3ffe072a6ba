package template

import (
	"strings"

	"github.com/Veraticus/rename-agent/internal/model"
)

// Parse splits a template into literal and field tokens. Field names are
// matched case-sensitively; unknown names, unbalanced braces and format
// specifiers the field does not support are rejected.
func Parse(template string) (Tokens, error) {
	var tokens Tokens
	var literal strings.Builder

	flushLiteral := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, Token{Literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(template); {
		switch template[i] {
		case '}':
			return nil, &ParseError{Kind: ErrMalformedToken, Template: template, Pos: i, Token: "}"}
		case '{':
			end := strings.IndexAny(template[i+1:], "{}")
			if end < 0 || template[i+1+end] == '{' {
				return nil, &ParseError{Kind: ErrMalformedToken, Template: template, Pos: i, Token: template[i:]}
			}
			body := template[i+1 : i+1+end]
			token, err := parseField(template, i, body)
			if err != nil {
				return nil, err
			}
			flushLiteral()
			tokens = append(tokens, token)
			i += end + 2
		default:
			literal.WriteByte(template[i])
			i++
		}
	}
	flushLiteral()

	return tokens, nil
}

func parseField(template string, pos int, body string) (Token, error) {
	raw := "{" + body + "}"

	name, format, hasFormat := strings.Cut(body, ":")
	if name == "" || (hasFormat && format == "") {
		return Token{}, &ParseError{Kind: ErrMalformedToken, Template: template, Pos: pos, Token: raw}
	}

	field, ok := model.ParseFieldName(name)
	if !ok {
		return Token{}, &ParseError{Kind: ErrUnknownField, Template: template, Pos: pos, Token: raw}
	}

	if hasFormat && !supportsFormat(field, format) {
		return Token{}, &ParseError{Kind: ErrUnsupportedFormat, Template: template, Pos: pos, Token: raw}
	}

	return Token{Field: field, Format: format}, nil
}

func supportsFormat(field model.FieldName, format string) bool {
	switch field {
	case model.FieldDate:
		_, ok := dateFormats[format]
		return ok
	case model.FieldYear:
		return format == "YYYY"
	default:
		return false
	}
}

// Validate parses the template and additionally requires at least one field
// token, since a template without fields cannot tell documents apart.
func Validate(template string) (Tokens, error) {
	tokens, err := Parse(template)
	if err != nil {
		return nil, err
	}
	if len(tokens.FieldTokens()) == 0 {
		return nil, &ParseError{Kind: ErrNoFieldTokens, Template: template}
	}
	return tokens, nil
}

// MustParse is Validate for templates known at compile time.
func MustParse(template string) Tokens {
	tokens, err := Validate(template)
	if err != nil {
		panic(err)
	}
	return tokens
}
