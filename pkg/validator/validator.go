package validator

import (
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomTypes()
	return v
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

// ValidateStructured returns a map of field -> error message for API responses
func (v *Validator) ValidateStructured(i interface{}) map[string]string {
	errs := make(map[string]string)
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
				switch e.Tag() {
				case "required":
					msg = "This field is required"
				case "email":
					msg = "Invalid email address"
				case "gt":
					msg = "Must be greater than " + e.Param()
				case "min":
					msg = fmt.Sprintf("Must be at least %s characters", e.Param())
				case "max":
					msg = fmt.Sprintf("Must be at most %s characters", e.Param())
				case "oneof":
					msg = "Must be one of: " + e.Param()
				}
				errs[e.Field()] = msg
			}
		} else {
			errs["_global"] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *Validator) registerCustomTypes() {
	// Register decimal.Decimal to be validated as float64 for gt/lt checks
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := val.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// Sanitize cleans string input to prevent XSS attacks
func Sanitize(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}
