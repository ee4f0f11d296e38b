// Package validate checks request structs against their validate tags and
// reports the first failure as an *errors.ValidationError.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields under their wire names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return lowerFirst(f.Name)
	})

	return v
}

// Struct validates s using go-playground/validator tags.
func Struct(s any) error {
	return translate("", validate.Struct(s))
}

// Field validates a single value, reporting failures under name.
func Field(name string, value any, tag string) error {
	return translate(name, validate.Var(value, tag))
}

func translate(name string, err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	if name == "" {
		name = fe.Field()
	}

	return &apperrors.ValidationError{
		Field:   name,
		Message: label(name) + " " + msgForTag(fe),
	}
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// "examType" -> "Exam type"
func label(name string) string {
	if name == "" {
		return "Value"
	}

	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}

	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
