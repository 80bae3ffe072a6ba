// Package filename turns rendered pattern output into safe, unique file names.
package filename

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Veraticus/rename-agent/internal/model"
)

// DefaultMaxLength is the default limit in bytes for a full file name.
const DefaultMaxLength = 200

// minBodyLength keeps truncation from eating the whole name when the
// extension or collision suffix is long.
const minBodyLength = 8

const (
	substitute   = '-'
	fallbackBody = "unnamed"
	illegalChars = `/\:*?"<>|`
)

// Options controls sanitization.
type Options struct {
	// MaxLength bounds the full name in bytes. Zero means DefaultMaxLength.
	MaxLength int
}

// Sanitize converts a rendered name and an extension into a legal file name
// that is not in existing. Illegal characters become a hyphen, whitespace
// runs collapse, leading and trailing separators are trimmed, long bodies are
// truncated at a word boundary, and collisions get a " (n)" suffix.
func Sanitize(rendered, extension string, existing NameSet) model.RenderedName {
	return SanitizeWithOptions(rendered, extension, existing, Options{})
}

// SanitizeWithOptions is Sanitize with explicit options.
func SanitizeWithOptions(rendered, extension string, existing NameSet, opts Options) model.RenderedName {
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	ext := cleanExtension(extension)

	body := norm.NFC.String(rendered)
	if ext != "" && len(body) >= len(ext) && strings.EqualFold(body[len(body)-len(ext):], ext) {
		body = body[:len(body)-len(ext)]
	}
	body = cleanBody(body)

	budget := max(maxLength-len(ext), minBodyLength)
	body, truncated := truncate(body, budget)

	result := model.RenderedName{
		Base:      body,
		Extension: ext,
		Name:      body + ext,
		Truncated: truncated,
	}

	for n := 2; existing.Contains(result.Name); n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		short, cut := truncate(body, max(budget-len(suffix), minBodyLength))
		result.Base = short + suffix
		result.Name = result.Base + ext
		result.Suffixed = true
		result.Truncated = truncated || cut
	}

	return result
}

// cleanBody applies character replacement and whitespace rules.
func cleanBody(s string) string {
	var b strings.Builder
	lastWasSpace := false
	lastWasSubstitute := false

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			lastWasSubstitute = false
		case unicode.IsControl(r) || strings.ContainsRune(illegalChars, r) || r == utf8.RuneError:
			if !lastWasSubstitute {
				b.WriteRune(substitute)
			}
			lastWasSubstitute = true
			lastWasSpace = false
		default:
			b.WriteRune(r)
			lastWasSpace = false
			lastWasSubstitute = false
		}
	}

	body := trimSeparators(b.String())
	if body == "" {
		return fallbackBody
	}
	return body
}

func trimSeparators(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == ' ' || r == '.' || r == '-' || r == '_'
	})
}

// cleanExtension normalizes ".PDF", "pdf" and "" and strips illegal characters.
func cleanExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimLeft(ext, ".")
	ext = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(illegalChars, r) {
			return -1
		}
		return r
	}, ext)
	if ext == "" {
		return ""
	}
	return "." + ext
}

// truncate shortens s to at most limit bytes, preferring to cut at a space or
// hyphen in the second half of the allowed length.
func truncate(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	if boundary := strings.LastIndexAny(s[:cut], " -"); boundary >= limit/2 {
		cut = boundary
	}

	short := trimSeparators(s[:cut])
	if short == "" {
		short = fallbackBody
	}
	return short, true
}
