package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperr "erpcore/internal/errors"
)

// NewHTTPErrorHandler maps domain errors to their HTTP codes, logs
// unexpected errors without leaking details to the client, and renders
// the standard error envelope.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		// Echo's own errors (bind failures, router 404s) and handler
		// shortcuts pass through.
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if resp, ok := he.Message.(apperr.ErrorResponse); ok {
				_ = c.JSON(he.Code, resp)
				return
			}
			_ = c.JSON(he.Code, apperr.ErrorResponse{
				Error: fmt.Sprintf("%v", he.Message),
				Code:  http.StatusText(he.Code),
			})
			return
		}

		httpErr := apperr.MapErrorToHTTP(err)
		if httpErr.StatusCode == http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
		}
		_ = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
}
