// Package validation collects field errors for request payloads.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Validator struct {
	Errors []ValidationError
}

func New() *Validator {
	return &Validator{
		Errors: make([]ValidationError, 0),
	}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

func (v *Validator) Required(value, field string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// Amount parses a positive decimal amount with at most two decimal places.
func (v *Validator) Amount(raw, field string) decimal.Decimal {
	if raw == "" {
		v.AddError(field, "is required")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		v.AddError(field, "must be a decimal number")
		return decimal.Zero
	}
	v.Check(d.IsPositive(), field, "must be greater than zero")
	v.Check(d.Exponent() >= -2 || d.Equal(d.Round(2)), field, "must have at most two decimal places")
	return d
}

// OptionalAmount is Amount for fields that may be omitted.
func (v *Validator) OptionalAmount(raw, field string) decimal.NullDecimal {
	if raw == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v.Amount(raw, field))
}

// AbsoluteURL checks raw is an absolute http(s) URL.
func (v *Validator) AbsoluteURL(raw, field string) {
	if raw == "" {
		v.AddError(field, "is required")
		return
	}
	u, err := url.Parse(raw)
	v.Check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "", field, "must be an absolute http(s) URL")
}

// Error joins the collected errors into one message.
func (v *Validator) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
