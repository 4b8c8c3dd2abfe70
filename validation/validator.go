package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kbukum/resourcekit/errors"
)

// FieldError is one rejected field. Field is the configuration key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// FieldErrors is the list stored under the "fields" detail of a
// validation AppError.
type FieldErrors []FieldError

// AppError reports the fields as one INVALID_INPUT error, or nil when the
// list is empty.
func (fe FieldErrors) AppError() *errors.AppError {
	if len(fe) == 0 {
		return nil
	}
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.String()
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", []FieldError(fe))
}

// Validator collects field errors for rules that struct tags cannot
// express, such as one field depending on another.
type Validator struct {
	fields FieldErrors
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a field error.
func (v *Validator) AddError(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether anything was recorded.
func (v *Validator) HasErrors() bool { return len(v.fields) > 0 }

// Errors returns the recorded field errors in order.
func (v *Validator) Errors() []FieldError { return v.fields }

// Validate returns the recorded errors as an AppError, or nil.
func (v *Validator) Validate() *errors.AppError {
	return v.fields.AppError()
}

// Merge takes over the field errors of err, as returned by Validate at
// package level. Any other error is recorded under an empty field.
func (v *Validator) Merge(err error) *Validator {
	if err == nil {
		return v
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if fields, ok := appErr.Details["fields"].([]FieldError); ok {
			v.fields = append(v.fields, fields...)
			return v
		}
	}
	v.AddError("", err.Error())
	return v
}

// Custom records message for field unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// Required rejects blank strings.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(strings.TrimSpace(value) != "", field, "is required")
}

// Pattern rejects a non-empty value that does not match pattern.
func (v *Validator) Pattern(field, value, pattern string) *Validator {
	if value == "" {
		return v
	}
	re, err := regexp.Compile(pattern)
	return v.Custom(err == nil && re.MatchString(value), field, "does not match required format")
}

// OneOf rejects a non-empty value outside allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.Custom(false, field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// Required is the single-field form of Validator.Required.
func Required(field, value string) error {
	if err := New().Required(field, value).Validate(); err != nil {
		return err
	}
	return nil
}
