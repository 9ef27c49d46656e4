package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/logger"
)

const (
	MsgEmployeeNotFound = "Employee not found"
	MsgDuplicateEmail   = "Email already exists"
	MsgRouteNotFound    = "Route not found"
	MsgInvalidBody      = "Invalid request body"
	MsgInternal         = "Something went wrong!"
	MsgEmployeeDeleted  = "Employee deleted successfully"
)

// ResponseError writes {"error": msg} with status.
func ResponseError(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Error: msg})
}

// ResponseDomainError maps the store error taxonomy onto HTTP.
func ResponseDomainError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return ResponseError(c, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		return ResponseError(c, http.StatusBadRequest, MsgDuplicateEmail)
	case errors.Is(err, domain.ErrEmployeeNotFound):
		return ResponseError(c, http.StatusNotFound, MsgEmployeeNotFound)
	default:
		logger.ErrorLog(c.Request().Context(), "Request %s %s failed: %v", c.Request().Method, c.Path(), err)
		return ResponseError(c, http.StatusInternalServerError, MsgInternal)
	}
}

// HTTPErrorHandler renders errors escaping the handlers in the same JSON shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			err = ResponseError(c, http.StatusNotFound, MsgRouteNotFound)
		case http.StatusInternalServerError:
			logger.ErrorLog(c.Request().Context(), "Unhandled error: %v", err)
			err = ResponseError(c, http.StatusInternalServerError, MsgInternal)
		default:
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			err = ResponseError(c, he.Code, msg)
		}
	} else {
		err = ResponseDomainError(c, err)
	}

	if err != nil {
		logger.ErrorLog(c.Request().Context(), "Failed to write error response: %v", err)
	}
}
