package template

import (
	"errors"
	"fmt"

	"github.com/Veraticus/rename-agent/internal/model"
)

// Parse error kinds.
var (
	ErrMalformedToken    = errors.New("malformed token")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoFieldTokens     = errors.New("template has no field tokens")
)

// Render error kinds.
var (
	ErrMissingField          = errors.New("missing field")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInsufficientPrecision = errors.New("insufficient precision")
)

// ParseError reports a template that cannot be used. Kind is one of the parse
// error kinds and is matched by errors.Is.
type ParseError struct {
	Kind     error
	Template string
	Token    string
	Pos      int
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("template %q: %v at offset %d: %s", e.Template, e.Kind, e.Pos, e.Token)
	}
	return fmt.Sprintf("template %q: %v", e.Template, e.Kind)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// RenderError reports a field that could not be rendered for a document.
// A date value that does not parse at all has Kind ErrInvalidDate; one that
// parses but is coarser than the requested format has ErrInsufficientPrecision.
type RenderError struct {
	Kind  error
	Field model.FieldName
	Value string
	// Want is the format that was requested, when relevant.
	Want string
}

func (e *RenderError) Error() string {
	switch {
	case e.Value == "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Field)
	case e.Want != "":
		return fmt.Sprintf("%v: %s=%q cannot be formatted as %s", e.Kind, e.Field, e.Value, e.Want)
	default:
		return fmt.Sprintf("%v: %s=%q", e.Kind, e.Field, e.Value)
	}
}

func (e *RenderError) Unwrap() error {
	return e.Kind
}
