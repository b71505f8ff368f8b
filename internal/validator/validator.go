// Package validator wraps go-playground/validator with JSON field names and
// the editor's custom tags.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gshare/gallery-editor/internal/layout"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("breakpoint", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		_, err := layout.ParseBreakpoint(v)
		return err == nil
	})
}

// Validate checks s and returns a map of field errors, or nil
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return fields
}

// Struct checks s and folds all field errors into one error
func Struct(s interface{}) error {
	fields := Validate(s)
	if fields == nil {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, fields[k])
	}
	return errors.New(strings.Join(parts, "; "))
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "This field is required"
	case "min":
		return "Value is too small (min: " + fe.Param() + ")"
	case "max":
		return "Value is too large (max: " + fe.Param() + ")"
	case "gte":
		return "Value must be at least " + fe.Param()
	case "lte":
		return "Value must be at most " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "url":
		return "Invalid URL format"
	case "breakpoint":
		return "Unknown breakpoint. Must be: xs, sm, md, lg, or xl"
	default:
		return "Invalid value"
	}
}
