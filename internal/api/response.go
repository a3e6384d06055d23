package api

import (
	"net/http"

	"storefront/internal/util"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// envelope is the uniform response wrapper. Success responses carry
// data and an optional message; failures carry an error label and a
// human message.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func okMessage(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

// fail maps a business error kind to an HTTP status. Unclassified
// faults become a 500 with a generic message; the cause only goes to
// the log.
func fail(c echo.Context, err error) error {
	e, typed := util.AsError(err)
	if !typed || e.Kind == util.KindInternal {
		util.GetLogger().Error("Request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, envelope{
			Success: false,
			Error:   "internal_error",
			Message: "internal server error",
		})
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case util.KindValidation:
		status = http.StatusBadRequest
	case util.KindNotFound:
		status = http.StatusNotFound
	case util.KindConflict:
		status = http.StatusConflict
	case util.KindUnauthorized:
		status = http.StatusUnauthorized
	}

	return c.JSON(status, envelope{Success: false, Error: e.Label, Message: e.Message})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, envelope{
		Success: false,
		Error:   "invalid_request",
		Message: message,
	})
}
