package middleware

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	digits10Pattern   = regexp.MustCompile(`^[0-9]{10}$`)
	digits12Pattern   = regexp.MustCompile(`^[0-9]{12}$`)
	panPattern        = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)
	alphaSpacePattern = regexp.MustCompile(`^[A-Za-z ]+$`)
)

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
	mustRegister(v, "digits10", matchString(digits10Pattern))
	mustRegister(v, "digits12", matchString(digits12Pattern))
	mustRegister(v, "pan", matchString(panPattern))
	mustRegister(v, "alphaspace", matchString(alphaSpacePattern))
	mustRegister(v, "strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// StrongPassword requires at least 8 characters with an upper-case letter, a
// digit and a symbol.
func StrongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && digit && special
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func ValidateRequest(obj any) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ValidationError{{Field: "", Message: err.Error(), Type: "invalid"}}
	}

	for _, err := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: getErrorMsg(err),
			Type:    err.Tag(),
		})
	}

	return validationErrors
}

// ValidateField checks a single value against a validator tag list, returning
// a message or "" when it passes.
func ValidateField(value any, tag string) string {
	err := validate.Var(value, tag)
	if err == nil {
		return ""
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		return getErrorMsg(fieldErrors[0])
	}
	return "Invalid value"
}

func getErrorMsg(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gt":
		return "Value must be greater than " + err.Param()
	case "gte":
		return "Value must be greater than or equal to " + err.Param()
	case "oneof":
		return "Value must be one of: " + err.Param()
	case "eqfield":
		return "Value must match " + err.Param()
	case "digits10":
		return "Must be exactly 10 digits"
	case "digits12":
		return "Must be exactly 12 digits"
	case "pan":
		return "Must be 10 alphanumeric characters"
	case "alphaspace":
		return "Only letters and spaces are allowed"
	case "strongpassword":
		return "Password must be at least 8 characters with an uppercase letter, a digit and a special character"
	case "isodate":
		return "Date must be in YYYY-MM-DD format"
	default:
		return "Invalid value"
	}
}
