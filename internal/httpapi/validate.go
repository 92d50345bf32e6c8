package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field names from json tags so messages match the
// wire format.
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

// validateStruct turns validator failures into one client-facing message.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fieldName(fe)))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email address", fieldName(fe)))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", fieldName(fe), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fieldName(fe), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fieldName(fe)))
		}
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

func fieldName(fe validator.FieldError) string {
	return fe.Field()
}
