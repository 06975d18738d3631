// Package respond writes the JSON envelope shared by every API route and maps
// domain errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fapac/materiais-bff/models"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

// Fail writes {ok:false, error:msg} with the given status.
func Fail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{OK: false, Error: msg})
}

// Error maps err to a status with StatusFor and writes the failure envelope.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	evt := log.Warn()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("request failed")

	Fail(w, status, err.Error())
}

// StatusFor returns the HTTP status for a domain error.
// Upstream errors keep the upstream status.
func StatusFor(err error) int {
	var (
		upErr  *models.UpstreamError
		vErr   *models.ValidationError
		nfErr  *models.NotFoundError
		cfgErr *models.ConfigurationError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.As(err, &nfErr):
		return http.StatusNotFound
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &upErr):
		if upErr.Status < 400 || upErr.Status > 599 {
			return http.StatusBadGateway
		}
		return upErr.Status
	}
	return http.StatusInternalServerError
}

// DecodeJSON decodes the request body into dest.
func DecodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}
