package httpserver

import (
	"errors"
	"net/http"

	"github.com/aerolens/air-quality-api/internal/core/domain/airquality"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// handleHTTPError renders every failure as a {"detail": ...} JSON body, the
// shape the frontend consumes. Upstream lookup failures map through their own
// status translation; anything unrecognized becomes a 500.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := "internal server error"

	var provErr *airquality.ProviderError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &provErr):
		code = provErr.HTTPStatus()
		detail = provErr.Detail
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
			"status": code,
		}).WithError(err).Error("request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, map[string]string{"detail": detail})
	}
	if writeErr != nil && s.logger != nil {
		s.logger.WithError(writeErr).Error("failed to write error response")
	}
}
