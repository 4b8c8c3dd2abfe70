package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/inflector"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func shared() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(keyName)
	})
	return structValidator
}

// keyName reports a field by its yaml key, falling back to snake_case.
func keyName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
	if name == "" || name == "-" {
		return toSnakeCase(fld.Name)
	}
	return name
}

// Validate checks the `validate` tags of s. Failures come back as one
// INVALID_INPUT AppError whose "fields" detail holds a []FieldError.
func Validate(s any) error {
	err := shared().Struct(s)
	if err == nil {
		return nil
	}
	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return errors.Validation("validation failed").WithCause(err)
	}
	fields := make(FieldErrors, len(failed))
	for i, fe := range failed {
		fields[i] = FieldError{Field: fe.Field(), Message: describe(fe)}
	}
	return fields.AppError()
}

var tagMessages = map[string]string{
	"required":    "is required",
	"min":         "must be at least ",
	"max":         "must be at most ",
	"gte":         "must be greater than or equal to ",
	"lte":         "must be less than or equal to ",
	"url":         "must be a valid URL",
	"oneof":       "must be one of: ",
	"excludesall": "must not contain any of: ",
}

func describe(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.HasSuffix(msg, " ") {
		return msg + fe.Param()
	}
	return msg
}

func toSnakeCase(s string) string {
	return strings.ToLower(inflector.Underscore(s))
}
