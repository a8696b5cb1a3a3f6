package web

import (
	"encoding/json"
	"net/http"

	"github.com/barkadahq/spotify-mirror/internal/apperr"
	"github.com/barkadahq/spotify-mirror/internal/spotify"
)

// maxBarkadaUsers caps how many tokens one group analysis fans out to.
const maxBarkadaUsers = 6

// handleListeningHabits fetches the session user's top tracks, top artists
// and recent plays in one response (GET /api/v1/analytics/listening-habits).
func (s *Server) handleListeningHabits(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	timeRange := r.URL.Query().Get("time_range")
	topTracks, err := s.spotify.TopTracks(r.Context(), token, spotify.TopItemsParams{Limit: 50, TimeRange: timeRange})
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	topArtists, err := s.spotify.TopArtists(r.Context(), token, spotify.TopItemsParams{Limit: 50, TimeRange: timeRange})
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	recent, err := s.spotify.RecentlyPlayed(r.Context(), token, 50)
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}

	respondData(w, http.StatusOK, map[string]json.RawMessage{
		"top_tracks":      topTracks.Raw,
		"top_artists":     topArtists.Raw,
		"recently_played": recent,
	})
}

type barkadaAnalysisRequest struct {
	UserTokens []string `json:"user_tokens"`
	SessionID  string   `json:"session_id"`
}

// handleBarkadaAnalysis runs the group analysis over the supplied access
// tokens (POST /api/v1/analytics/barkada). Tokens beyond the group cap are
// ignored.
func (s *Server) handleBarkadaAnalysis(w http.ResponseWriter, r *http.Request) {
	var req barkadaAnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.UserTokens) == 0 {
		s.fail(w, r, apperr.New(apperr.CodeMissingInput, "No user tokens provided"))
		return
	}

	tokens := req.UserTokens
	if len(tokens) > maxBarkadaUsers {
		tokens = tokens[:maxBarkadaUsers]
	}

	analysis := s.analyzer.Analyze(r.Context(), tokens)
	analysis.SessionID = req.SessionID
	respondData(w, http.StatusOK, analysis)
}

// handleComingSoon serves the analytics endpoints that exist only for
// frontend surface parity.
func (s *Server) handleComingSoon(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondData(w, http.StatusOK, map[string]string{
			"status":  "coming_soon",
			"message": feature + " is coming soon",
		})
	}
}
