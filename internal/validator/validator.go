package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Seat codes are a row letter block followed by a seat number, e.g. "A1" or "AB12".
var seatCodeRgx = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,3}$`)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_code", validateSeatCode)

	return validator
}

func validateSeatCode(fl validator.FieldLevel) bool {
	return seatCodeRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s items", err.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s items", err.Param())
	case "unique":
		return "must not contain duplicates"
	case "seat_code":
		return "must be a valid seat code, e.g. A1"
	default:
		return "is invalid"
	}
}
