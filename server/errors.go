package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brettbedarf/dirstore"
	"github.com/labstack/echo/v4"
)

var errMissingIdentity = errors.New("no " + HeaderEntityUID + " header")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}

const internalErrorMessage = "Internal server error"

// statusFor maps an error to the status code and message sent to the client.
// Backend failures never leak their detail.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, dirstore.ErrDirectoryNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, dirstore.ErrDepthLimitExceeded):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return he.Code, internalErrorMessage
		}
		return he.Code, fmt.Sprint(he.Message)
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := statusFor(err)
	event := s.logger.Debug()
	if code >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Int("status", code).Str("path", c.Path()).Msg("Request failed")

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Message: msg})
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to write error response")
	}
}
