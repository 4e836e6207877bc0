package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

// Custom tags:
//
//	boostkind       value is one of domain.BoostKinds
//	decimal         value parses as a decimal (empty passes; pair with required)
//	decimal_gte=N   decimal value is at least N
//	decimal_gt=N    decimal value is greater than N
const (
	tagBoostKind  = "boostkind"
	tagDecimal    = "decimal"
	tagDecimalGTE = "decimal_gte"
	tagDecimalGT  = "decimal_gt"
)

// Validator validates request structs. Field names in errors are the JSON names.
type Validator struct {
	validate *validator.Validate
}

var (
	validatorOnce sync.Once
	shared        *Validator
)

// GetValidator returns the shared request validator.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		shared = newValidator()
	})
	return shared
}

func newValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	_ = v.RegisterValidation(tagBoostKind, validateBoostKind)
	_ = v.RegisterValidation(tagDecimal, validateDecimal)
	_ = v.RegisterValidation(tagDecimalGTE, decimalBound(func(d, bound decimal.Decimal) bool { return d.GreaterThanOrEqual(bound) }))
	_ = v.RegisterValidation(tagDecimalGT, decimalBound(func(d, bound decimal.Decimal) bool { return d.GreaterThan(bound) }))

	return &Validator{validate: v}
}

// jsonFieldName reports the json tag name, or the lower-cased Go name when the
// field has none.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	}
	return name
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationError maps each failing field to a user-facing message.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"error": "Invalid request format"}
	}

	errs := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errs[e.Field()] = fieldMessage(e)
	}
	return errs
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case tagBoostKind:
		return "Unknown boost kind"
	case tagDecimal:
		return "Must be a decimal number"
	case "max":
		return fmt.Sprintf("Must be at most %s", e.Param())
	case "min", tagDecimalGTE:
		return fmt.Sprintf("Must be at least %s", e.Param())
	case tagDecimalGT:
		return fmt.Sprintf("Must be greater than %s", e.Param())
	case "excludesall":
		return "Contains invalid characters"
	}
	return "Invalid value"
}

func validateBoostKind(fl validator.FieldLevel) bool {
	kind := domain.BoostKind(fl.Field().String())
	for _, known := range domain.BoostKinds {
		if kind == known {
			return true
		}
	}
	return false
}

func validateDecimal(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := decimal.NewFromString(value)
	return err == nil
}

// decimalBound builds a check comparing the field against the tag parameter.
// Unparseable values fail here too so the bound cannot be bypassed.
func decimalBound(ok func(d, bound decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ok(d, bound)
	}
}
