package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrorResponse represents a validation error with field-level details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Global validator instance (reused across all handlers). Field names are
// reported using their JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateRequest validates a request struct using go-playground/validator
// and reports the first failing field.
func ValidateRequest(req interface{}) error {
	errs := ValidationErrors(req)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed: %s: %s", errs[0].Field, errs[0].Message)
}

// ValidationErrors returns every failing field of req.
func ValidationErrors(req interface{}) []ValidationErrorResponse {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []ValidationErrorResponse{{Field: "request", Message: err.Error()}}
	}

	out := make([]ValidationErrorResponse, 0, len(ve))
	for _, fieldError := range ve {
		out = append(out, ValidationErrorResponse{
			Field:   fieldError.Field(),
			Message: formatValidationError(fieldError),
		})
	}
	return out
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// normalizer is implemented by requests that clean their input before
// validation runs.
type normalizer interface {
	normalize()
}

// Surrounding whitespace is dropped from emails so a padded address reaches
// the duplicate check instead of failing the email rule.
func (r *RegisterRequest) normalize()         { r.Email = strings.TrimSpace(r.Email) }
func (r *LoginRequest) normalize()            { r.Email = strings.TrimSpace(r.Email) }
func (r *PasswordCheckRequest) normalize()    { r.Email = strings.TrimSpace(r.Email) }
func (r *MarkUserMigratedRequest) normalize() { r.Email = strings.TrimSpace(r.Email) }
func (r *EmailRequest) normalize()            { r.Email = strings.TrimSpace(r.Email) }
