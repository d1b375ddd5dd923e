// Package validation checks request payloads with go-playground/validator
// and turns failures into API validation errors.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/tablewise/server/pkg/errors"
)

const (
	// MaxDeviceIDLength bounds the X-Device-ID header
	MaxDeviceIDLength = 64
)

// Validator validates request payloads
type Validator struct {
	validate *validator.Validate
}

// New creates a validator reporting fields by their JSON names
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("device_id", validateDeviceID)
	validate.RegisterValidation("meal_type", validateMealType)

	return &Validator{validate: validate}
}

// Struct validates s. Failures come back as a VALIDATION_FAILED AppError
// with message and one entry per offending field.
func (v *Validator) Struct(s interface{}, message string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewBadRequestError(message)
	}
	return errors.NewValidationErrors(message, fieldErrors(verrs))
}

// DeviceID reports whether id is an acceptable device identifier
func (v *Validator) DeviceID(id string) bool {
	return v.validate.Var(id, "required,device_id") == nil
}

func fieldErrors(verrs validator.ValidationErrors) []errors.ValidationError {
	fields := make([]errors.ValidationError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, errors.ValidationError{
			Field:   fieldPath(e),
			Tag:     e.Tag(),
			Message: message(e),
		})
	}
	return fields
}

// fieldPath drops the root struct name: "CreateRecipeCommand.tags[0]" -> "tags[0]"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func message(e validator.FieldError) string {
	field := fieldPath(e)
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if e.Kind() == reflect.Int {
			return fmt.Sprintf("%s must be at most %s", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "min":
		if e.Kind() == reflect.Int {
			return fmt.Sprintf("%s must be at least %s", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "meal_type":
		return fmt.Sprintf("%s must be one of Breakfast, Lunch, Dinner", field)
	case "device_id":
		return fmt.Sprintf("%s is not a valid device id", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// validateDeviceID accepts short printable ids without separators, as the
// id becomes part of every state key.
func validateDeviceID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || len(id) > MaxDeviceIDLength {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

func validateMealType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Breakfast", "Lunch", "Dinner":
		return true
	}
	return false
}
