package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// sessionCookie names the HttpOnly browser session cookie. The cookie only
// carries an opaque ID; all auth state lives server-side in the session
// store.
const sessionCookie = "barkada_session"

// sessionID returns the request's browser session ID, minting and setting a
// fresh one when the cookie is absent or malformed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionTTL / time.Second),
	})
	return id
}

// clearSessionCookie expires the browser session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
