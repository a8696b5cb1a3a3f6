package web

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/barkadahq/spotify-mirror/internal/popup"
)

// handleLogin starts an OAuth login for a friend slot (GET /api/v1/auth/login).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	slot := r.URL.Query().Get("friend_slot")

	authz, err := s.auth.AuthorizationURL(r.Context(), sid, slot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, authz)
}

type callbackRequest struct {
	Code       string `json:"code"`
	State      string `json:"state"`
	FriendSlot string `json:"friend_slot"`
}

// handleCallback completes the OAuth flow (POST /api/v1/auth/callback). The
// popup relays code and state to the opener, which posts them here.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)

	var req callbackRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.auth.HandleCallback(r.Context(), sid, req.Code, req.State, req.FriendSlot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh exchanges a refresh token (POST /api/v1/auth/refresh).
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.auth.Refresh(r.Context(), sid, req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

// handleLogout clears the session's auth state (POST /api/v1/auth/logout).
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	if err := s.auth.Logout(r.Context(), sid); err != nil {
		s.fail(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	respondMessage(w, http.StatusOK, "logged out")
}

// handleBarkadaUsers lists every authenticated friend in the session
// (GET /api/v1/auth/barkada/users).
func (s *Server) handleBarkadaUsers(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	users, err := s.auth.BarkadaUsers(r.Context(), sid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleBarkadaClear removes all friend logins (POST /api/v1/auth/barkada/clear).
func (s *Server) handleBarkadaClear(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	if err := s.auth.ClearBarkada(r.Context(), sid); err != nil {
		s.fail(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "barkada session cleared")
}

// handleCallbackPage serves the popup relay page (GET /callback). Spotify
// redirects the popup here; the page posts code and state to the opener and
// closes itself. Without an opener it falls back to a frontend redirect.
func (s *Server) handleCallbackPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	msg := popup.Message{
		Type:  popup.TypeAuthSuccess,
		Code:  q.Get("code"),
		State: q.Get("state"),
	}
	if errMsg := q.Get("error"); errMsg != "" {
		msg = popup.Message{Type: popup.TypeAuthError, Error: errMsg}
	}

	if msg.Type == popup.TypeAuthError {
		http.Redirect(w, r, s.frontendURL+"/?error="+url.QueryEscape(msg.Error), http.StatusTemporaryRedirect)
		return
	}

	fallback := s.frontendURL + "/callback?code=" + url.QueryEscape(msg.Code) + "&state=" + url.QueryEscape(msg.State)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := popup.WriteRelayPage(w, msg, s.frontendURL, fallback); err != nil {
		s.logger.Error("relay page render failed", zap.Error(err))
	}
}
