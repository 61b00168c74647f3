package backend

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	app_errors "ragchat/client/internal/errors"

	"github.com/go-playground/validator/v10"
)

// This file provides a centralized, singleton-based validator for outgoing
// request bodies. Nothing that fails these rules is ever sent to the backend.

var (
	// validate holds the single instance of the validator.
	validate *validator.Validate
	// once ensures that the validator is initialized only one time.
	once sync.Once
)

// getInstance uses sync.Once to safely initialize and return the validator singleton.
func getInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		// Report JSON field names so messages match what the backend would say.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateRequest checks a payload struct against the rules declared in its
// `validate` tags. Failures are returned as a wrapped app_errors.ErrValidation
// listing every offending field.
func ValidateRequest(payload interface{}) error {
	v := getInstance()
	err := v.Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: an unexpected error occurred during validation: %s", app_errors.ErrValidation, err.Error())
	}

	var errorMessages []string
	for _, fieldErr := range validationErrors {
		errorMessages = append(errorMessages, describeFieldError(fieldErr))
	}

	return fmt.Errorf("%w: %s", app_errors.ErrValidation, strings.Join(errorMessages, "; "))
}

// FieldErrors returns the offending field names of a validation failure, in
// the order the validator reported them. It is used to mark form fields.
func FieldErrors(payload interface{}) []string {
	err := getInstance().Struct(payload)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fieldErr.Field())
	}
	return fields
}

func describeFieldError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldErr.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fieldErr.Field(), fieldErr.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fieldErr.Field(), fieldErr.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", fieldErr.Field(), fieldErr.Tag())
	}
}
