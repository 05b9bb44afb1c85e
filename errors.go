package bloglist

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/bloglist/stats"
)

// ErrMalformedID is returned for ids that are not UUIDs.
var ErrMalformedID = errors.New("malformatted id")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := classifyError(err)
	if code >= 500 {
		a.Logger.Error("server error",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorBody{Error: msg})
}

func classifyError(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, echo.ErrNotFound):
		return http.StatusNotFound, "unknown endpoint"
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, ErrMalformedID):
		return http.StatusBadRequest, "malformatted id"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ErrUsernameTaken):
		return http.StatusBadRequest, "Username already in use"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, ErrTokenMissing), errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized, "token invalid"
	case errors.Is(err, stats.ErrInvalidRecord):
		return http.StatusInternalServerError, "invalid blog record"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
