package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Field errors.
var (
	ErrUnknownFieldName = errors.New("unknown field name")
	ErrFieldAbsent      = errors.New("field absent")
	ErrNotAnAmount      = errors.New("value is not a numeric amount")
)

// FieldName is one entry of the closed field vocabulary that templates may reference.
type FieldName string

// Field vocabulary.
const (
	FieldDate            FieldName = "Date"
	FieldYear            FieldName = "Year"
	FieldMerchant        FieldName = "Merchant"
	FieldAmount          FieldName = "Amount"
	FieldInstitution     FieldName = "Institution"
	FieldBankName        FieldName = "Bank Name"
	FieldServiceProvider FieldName = "Service Provider"
	FieldFormType        FieldName = "Form Type"
	FieldAccountNumber   FieldName = "Account Number"
	FieldLast4Digits     FieldName = "Last 4 Digits"
	FieldDescription     FieldName = "Description"
	FieldTitle           FieldName = "Title"
)

// FieldKind groups fields by how they are formatted.
type FieldKind int

// Field kinds.
const (
	KindText FieldKind = iota
	KindDate
	KindAmount
)

var fieldVocabulary = []FieldName{
	FieldDate,
	FieldYear,
	FieldMerchant,
	FieldAmount,
	FieldInstitution,
	FieldBankName,
	FieldServiceProvider,
	FieldFormType,
	FieldAccountNumber,
	FieldLast4Digits,
	FieldDescription,
	FieldTitle,
}

// FieldNames returns the full vocabulary in canonical order.
func FieldNames() []FieldName {
	names := make([]FieldName, len(fieldVocabulary))
	copy(names, fieldVocabulary)
	return names
}

// ParseFieldName matches s case-sensitively against the vocabulary.
func ParseFieldName(s string) (FieldName, bool) {
	for _, name := range fieldVocabulary {
		if string(name) == s {
			return name, true
		}
	}
	return "", false
}

// LookupFieldName is the lenient form used at input boundaries: it also accepts
// snake_case and any letter case ("account_number", "last 4 digits").
func LookupFieldName(s string) (FieldName, bool) {
	if name, ok := ParseFieldName(s); ok {
		return name, true
	}
	key := normalizeFieldKey(s)
	for _, name := range fieldVocabulary {
		if normalizeFieldKey(string(name)) == key {
			return name, true
		}
	}
	return "", false
}

func normalizeFieldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// Kind returns how the field is formatted when rendered.
func (n FieldName) Kind() FieldKind {
	switch n {
	case FieldDate, FieldYear:
		return KindDate
	case FieldAmount:
		return KindAmount
	default:
		return KindText
	}
}

// Fields maps field names to extracted values. Empty values are never stored,
// so an empty string and an absent field are indistinguishable.
type Fields map[FieldName]string

// NewFields builds a Fields map from loosely keyed input, rejecting keys that
// are not in the vocabulary.
func NewFields(raw map[string]string) (Fields, error) {
	fields := make(Fields, len(raw))
	for key, value := range raw {
		name, ok := LookupFieldName(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFieldName, key)
		}
		fields.Set(name, value)
	}
	return fields, nil
}

// Set stores a trimmed value, deleting the field when the value is blank.
func (f Fields) Set(name FieldName, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		delete(f, name)
		return
	}
	f[name] = value
}

// Get returns the trimmed value when the field is present and non-empty.
func (f Fields) Get(name FieldName) (string, bool) {
	value := strings.TrimSpace(f[name])
	return value, value != ""
}

// Has reports whether the field carries a non-empty value.
func (f Fields) Has(name FieldName) bool {
	_, ok := f.Get(name)
	return ok
}

// Date parses the field as a date with whatever precision the value carries.
func (f Fields) Date(name FieldName) (Date, error) {
	value, ok := f.Get(name)
	if !ok {
		return Date{}, fmt.Errorf("%w: %s", ErrFieldAbsent, name)
	}
	return ParseDate(value)
}

// Amount parses the field as a decimal amount. Currency symbols, thousands
// separators and surrounding whitespace are ignored.
func (f Fields) Amount(name FieldName) (decimal.Decimal, error) {
	value, ok := f.Get(name)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrFieldAbsent, name)
	}
	return ParseAmount(value)
}

// ParseAmount parses a monetary string such as "$1,234.50" into a decimal.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', ',', ' ':
			return -1
		}
		return r
	}, value)
	cleaned = strings.ToUpper(cleaned)
	cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "USD"), "USD")

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNotAnAmount, value)
	}
	return amount, nil
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	clone := make(Fields, len(f))
	for k, v := range f {
		clone[k] = v
	}
	return clone
}

// Names returns the present field names in vocabulary order.
func (f Fields) Names() []FieldName {
	names := make([]FieldName, 0, len(f))
	for _, name := range fieldVocabulary {
		if f.Has(name) {
			names = append(names, name)
		}
	}
	return names
}

// WithDerived returns a copy where absent fields are filled from related
// present ones. Supplied values are never overridden.
func (f Fields) WithDerived() Fields {
	derived := f.Clone()

	if !derived.Has(FieldYear) {
		if date, err := derived.Date(FieldDate); err == nil {
			derived.Set(FieldYear, fmt.Sprintf("%04d", date.Year))
		}
	}

	if !derived.Has(FieldLast4Digits) {
		if account, ok := derived.Get(FieldAccountNumber); ok {
			digits := lastDigits(account, 4)
			derived.Set(FieldLast4Digits, digits)
		}
	}

	if institution, ok := derived.Get(FieldInstitution); ok {
		for _, alias := range []FieldName{FieldBankName, FieldServiceProvider} {
			if !derived.Has(alias) {
				derived.Set(alias, institution)
			}
		}
	}

	if !derived.Has(FieldTitle) {
		if description, ok := derived.Get(FieldDescription); ok {
			derived.Set(FieldTitle, description)
		}
	}

	return derived
}

// lastDigits returns the trailing n digits of s, or the trailing n characters
// when s carries fewer than n digits.
func lastDigits(s string, n int) string {
	var digits []rune
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) >= n {
		return string(digits[len(digits)-n:])
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// UnmarshalJSON applies the same strict key check as NewFields.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields, err := NewFields(raw)
	if err != nil {
		return err
	}
	*f = fields
	return nil
}

// String renders the fields as "Name=Value" pairs in vocabulary order.
func (f Fields) String() string {
	pairs := make([]string, 0, len(f))
	for _, name := range f.Names() {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, f[name]))
	}
	return strings.Join(pairs, ", ")
}
