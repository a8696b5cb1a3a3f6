package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/barkadahq/spotify-mirror/internal/apperr"
	"github.com/barkadahq/spotify-mirror/internal/spotify"
)

// envelope is the uniform JSON response shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail converts err to its HTTP representation. Internal causes are logged
// with full context and never leak to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.CodeInternal {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, appErr.Status(), envelope{
		Success: false,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// upstreamError classifies a Spotify API failure: expired or revoked tokens
// come back as unauthorized so the client knows to refresh, provider outages
// as upstream_unavailable.
func (s *Server) upstreamError(err error) error {
	var apiErr *spotify.APIError
	if !errors.As(err, &apiErr) {
		return apperr.Wrap(apperr.CodeUpstreamUnavailable, "music provider request failed", err)
	}
	if apiErr.IsAuthError() {
		return apperr.Wrap(apperr.CodeUnauthorized, "access token expired or invalid", err)
	}
	if apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests {
		return apperr.Wrap(apperr.CodeUpstreamUnavailable, "music provider unavailable", err)
	}
	return &apperr.Error{
		Code:    apperr.CodeUpstreamAuth,
		Message: "music provider rejected the request",
		Details: apiErr.Body,
		Err:     err,
	}
}

// decodeJSON parses the request body into v. An empty body is tolerated so
// optional-body endpoints can share the helper.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return apperr.New(apperr.CodeMissingInput, "invalid JSON body")
	}
	return nil
}
