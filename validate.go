package bloglist

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// requestValidator adapts validator/v10 to echo.Validator.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{v: validator.New()}
}

// Validate implements echo.Validator.
func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// validationError turns a validation failure into a 400. messages maps a
// failed tag ("required", "min", ...) to the message shown to clients;
// tags without an entry get a generic per-field message.
func validationError(err error, messages map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	// Missing fields are reported before malformed ones.
	for _, tag := range []string{"required", "min", "max"} {
		msg, ok := messages[tag]
		if !ok {
			continue
		}
		for _, fe := range verrs {
			if fe.Tag() == tag {
				return echo.NewHTTPError(http.StatusBadRequest, msg)
			}
		}
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, formatFieldError(fe))
	}
	return echo.NewHTTPError(http.StatusBadRequest, strings.Join(parts, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if e.Kind().String() == "int" {
			return fmt.Sprintf("%s must be at least %s", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
