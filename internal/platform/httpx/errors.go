// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by handlers.
var (
	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("upstream unavailable")
	ErrNotFound   = errors.New("resource not found")
	ErrDisabled   = errors.New("feature not configured")
)

// RespondError maps errors to RFC7807 responses. Internal errors never leak
// their message.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUpstream):
		Problem(w, http.StatusBadGateway, "Upstream Unavailable", "report data could not be loaded")
	case errors.Is(err, ErrDisabled):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
