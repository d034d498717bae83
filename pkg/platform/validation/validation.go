// Package validation runs struct-tag validation on request DTOs and turns the
// first failure into a readable domain error.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "encantar/pkg/domain-errors"
)

var (
	once     sync.Once
	instance *validator.Validate

	loginPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// Validator returns the shared validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("login", func(fl validator.FieldLevel) bool {
			return loginPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			n := len(DigitsOnly(fl.Field().String()))
			return n == 10 || n == 11
		})
		instance = v
	})
	return instance
}

// Struct validates s and returns a CodeValidation error naming the first
// failing field.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	return dErrors.New(dErrors.CodeValidation, describe(verrs[0]))
}

// NonEmpty returns p unless it points at the empty string. Validator treats a
// non-nil pointer as present even under omitempty, so partial updates use it
// to skip format rules on values that clear a field.
func NonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
		}
		if fe.Kind() == reflect.Int {
			return fmt.Sprintf("%s must be at least %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Int {
			return fmt.Sprintf("%s must be at most %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id", field)
	case "login":
		return fmt.Sprintf("%s may only contain letters, digits, dots, underscores and hyphens", field)
	case "phone":
		return fmt.Sprintf("%s must have 10 or 11 digits", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "unique":
		return fmt.Sprintf("%s must not repeat entries", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
