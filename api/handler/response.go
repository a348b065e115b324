package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"vigil/internal/service"

	"github.com/labstack/echo/v4"
)

// Every JSON response uses the same envelope; data and message are both
// optional.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondData(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, envelope{Success: true, Message: message})
}

func respondError(c echo.Context, status int, err error) error {
	return c.JSON(status, envelope{Success: false, Message: err.Error()})
}

func writeServiceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidMFACode):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		status = http.StatusConflict
	case errors.Is(err, service.ErrMFARequired):
		status = http.StatusPreconditionRequired
	case errors.Is(err, service.ErrMFANotConfigured):
		status = http.StatusFailedDependency
	}
	return respondError(c, status, err)
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// clientIP prefers the first X-Forwarded-For entry and falls back to the
// socket address.
func clientIP(c echo.Context) *string {
	forwarded := c.Request().Header.Get("X-Forwarded-For")
	if forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return &first
		}
	}
	return stringPtr(c.RealIP())
}

func userAgent(c echo.Context) *string {
	return stringPtr(c.Request().UserAgent())
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
