package middleware

import (
	"errors"
	"mime"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// SetupValidator configures gin's validator with JSON field names and the workflow tags
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return RegisterValidations(v)
}

// RegisterValidations installs the JSON tag name function and the custom tags on v
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]validator.Func{
		"payment_term": func(fl validator.FieldLevel) bool {
			return ordering.PaymentTerm(fl.Field().String()).IsValid()
		},
		"invoice_type": func(fl validator.FieldLevel) bool {
			return ordering.InvoiceType(fl.Field().String()).IsValid()
		},
		"receipt_content_type": func(fl validator.FieldLevel) bool {
			mediaType, _, err := mime.ParseMediaType(fl.Field().String())
			if err != nil {
				return false
			}
			return mediaType == "application/pdf" || strings.HasPrefix(mediaType, "image/")
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// FormatValidationErrors converts validator errors into field details keyed by JSON path
func FormatValidationErrors(err error) []shared.FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]shared.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, shared.FieldError{
			Field:   fieldPath(e.Namespace()),
			Message: getValidationMessage(e),
		})
	}
	return details
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " entries"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at most " + e.Param() + " entries"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "payment_term":
		return "Must be one of: instant 1_month 2_month 3_month custom"
	case "invoice_type":
		return "Must be one of: official unofficial"
	case "receipt_content_type":
		return "Must be an image type or application/pdf"
	default:
		return "Invalid value"
	}
}
