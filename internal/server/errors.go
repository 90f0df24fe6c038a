package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/studyquest/internal/apperr"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeInvalidArgument:  http.StatusBadRequest,
	apperr.CodeNotFound:         http.StatusNotFound,
	apperr.CodePermissionDenied: http.StatusForbidden,
	apperr.CodeRateLimited:      http.StatusTooManyRequests,
	apperr.CodeInternal:         http.StatusInternalServerError,
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := ErrorResponse{Code: string(apperr.CodeInternal), Message: "internal error"}

	var httpErr *echo.HTTPError
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		status = statusByCode[appErr.Code]
		if status == 0 {
			status = http.StatusInternalServerError
		}
		body.Code = string(appErr.Code)
		if status != http.StatusInternalServerError {
			body.Message = appErr.Message
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		body.Code = http.StatusText(status)
		if msg, ok := httpErr.Message.(string); ok {
			body.Message = msg
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request().Context(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}

	if err := c.JSON(status, body); err != nil {
		s.logger.Error("write error response", slog.String("error", err.Error()))
	}
}
