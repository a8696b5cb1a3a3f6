package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/barkadahq/spotify-mirror/internal/groups"
)

// handleSessionCreate makes a new group session (POST /api/v1/sessions).
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req groups.CreateParams
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	view, err := s.groups.Create(r.Context(), userID(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, view)
}

// handleSessionGet returns a session by its shareable code
// (GET /api/v1/sessions/{code}).
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	view, err := s.groups.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, view)
}

// handleSessionList lists the caller's active sessions (GET /api/v1/sessions).
func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	views, err := s.groups.List(r.Context(), userID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, views)
}

type sessionJoinRequest struct {
	UserName  string `json:"user_name"`
	SpotifyID string `json:"spotify_id"`
}

// handleSessionJoin adds a user to a session (POST /api/v1/sessions/{code}/join).
// Public: invitees join by code before authenticating.
func (s *Server) handleSessionJoin(w http.ResponseWriter, r *http.Request) {
	var req sessionJoinRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	view, err := s.groups.Join(r.Context(), chi.URLParam(r, "code"), req.SpotifyID, req.UserName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, view)
}

// handleSessionUsers lists a session's active participants
// (GET /api/v1/sessions/{code}/users).
func (s *Server) handleSessionUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.groups.Users(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleSessionLeave soft-removes the caller (POST /api/v1/sessions/{code}/leave).
func (s *Server) handleSessionLeave(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Leave(r.Context(), chi.URLParam(r, "code"), userID(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "left session")
}

// handleSessionEnd deactivates the session (DELETE /api/v1/sessions/{code}).
// Creator only.
func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.End(r.Context(), chi.URLParam(r, "code"), userID(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "session ended")
}

// handleSessionSync stores the latest playback state
// (PUT /api/v1/sessions/{code}/sync). Participants only.
func (s *Server) handleSessionSync(w http.ResponseWriter, r *http.Request) {
	var req groups.PlaybackSync
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	view, err := s.groups.SyncPlayback(r.Context(), chi.URLParam(r, "code"), userID(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, view)
}
