package http

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator reporting fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage joins field errors into one readable message
func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field()+" "+fieldMessage(e))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return strings.TrimSpace("must be at most " + e.Param() + " " + unit(e.Kind()))
	case "min":
		return strings.TrimSpace("must be at least " + e.Param() + " " + unit(e.Kind()))
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func unit(k reflect.Kind) string {
	switch k {
	case reflect.Slice, reflect.Array, reflect.Map:
		return "items"
	case reflect.String:
		return "characters"
	default:
		return ""
	}
}
