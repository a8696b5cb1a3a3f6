package web

import (
	"net/http"
	"strconv"

	"github.com/barkadahq/spotify-mirror/internal/spotify"
)

// token-gated pass-through endpoints. Each resolves the session's default
// access token and forwards the provider payload untouched.

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	profile, err := s.spotify.Profile(r.Context(), token)
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, profile.Raw)
}

func (s *Server) handleTopTracks(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.spotify.TopTracks(r.Context(), token, topItemsParams(r))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, page.Raw)
}

func (s *Server) handleTopArtists(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.spotify.TopArtists(r.Context(), token, topItemsParams(r))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, page.Raw)
}

func (s *Server) handleRecentlyPlayed(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := s.spotify.RecentlyPlayed(r.Context(), token, queryInt(r, "limit"))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, raw)
}

func (s *Server) handleSavedTracks(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := s.spotify.SavedTracks(r.Context(), token, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, raw)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := s.spotify.FollowedArtists(r.Context(), token, queryInt(r, "limit"))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, raw)
}

func topItemsParams(r *http.Request) spotify.TopItemsParams {
	return spotify.TopItemsParams{
		Limit:     queryInt(r, "limit"),
		TimeRange: r.URL.Query().Get("time_range"),
	}
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
