// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates dto against its `validate` tags and describes the first
// failing field.
func Struct(dto any) error {
	if err := validate.Struct(dto); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			first := vErrs[0]
			if first.Tag() == "required" {
				return fmt.Errorf("%s is required", first.Field())
			}
			return fmt.Errorf("field [%s] failed rule [%s]", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}

// Var validates a single value against tag.
func Var(value any, tag string) error {
	return validate.Var(value, tag)
}
