package web

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/barkadahq/spotify-mirror/internal/apperr"
)

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := s.spotify.Playlists(r.Context(), token, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, raw)
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := s.spotify.Playlist(r.Context(), token, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, raw)
}

func (s *Server) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := s.spotify.PlaylistTracks(r.Context(), token, chi.URLParam(r, "id"), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}
	respondData(w, http.StatusOK, raw)
}

// playlistTrack is the slice of a playlist item the analytics consume.
type playlistTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
	Popularity int    `json:"popularity"`
	Artists    []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
}

func (s *Server) playlistTrackList(r *http.Request, token, id string) ([]playlistTrack, error) {
	raw, err := s.spotify.PlaylistTracks(r.Context(), token, id, 100, 0)
	if err != nil {
		return nil, s.upstreamError(err)
	}
	var page struct {
		Items []struct {
			Track playlistTrack `json:"track"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, apperr.Internal("failed to parse playlist tracks", err)
	}
	tracks := make([]playlistTrack, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track.ID != "" {
			tracks = append(tracks, item.Track)
		}
	}
	return tracks, nil
}

// handlePlaylistAnalytics computes summary stats over a playlist's tracks
// (GET /api/v1/playlists/{id}/analytics).
func (s *Server) handlePlaylistAnalytics(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tracks, err := s.playlistTrackList(r, token, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var totalDuration, totalPopularity int
	artistCounts := make(map[string]int)
	for _, t := range tracks {
		totalDuration += t.DurationMS
		totalPopularity += t.Popularity
		for _, a := range t.Artists {
			artistCounts[a.Name]++
		}
	}

	avgPopularity := 0
	if len(tracks) > 0 {
		avgPopularity = totalPopularity / len(tracks)
	}

	type artistCount struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	topArtists := make([]artistCount, 0, len(artistCounts))
	for name, count := range artistCounts {
		topArtists = append(topArtists, artistCount{Name: name, Count: count})
	}
	sort.Slice(topArtists, func(i, j int) bool {
		if topArtists[i].Count != topArtists[j].Count {
			return topArtists[i].Count > topArtists[j].Count
		}
		return topArtists[i].Name < topArtists[j].Name
	})
	if len(topArtists) > 10 {
		topArtists = topArtists[:10]
	}

	respondData(w, http.StatusOK, map[string]any{
		"total_tracks":       len(tracks),
		"total_duration_ms":  totalDuration,
		"average_popularity": avgPopularity,
		"unique_artists":     len(artistCounts),
		"top_artists":        topArtists,
	})
}

type playlistCompareRequest struct {
	PlaylistIDs []string `json:"playlist_ids"`
}

// handlePlaylistCompare reports the track overlap between two playlists
// (POST /api/v1/playlists/compare).
func (s *Server) handlePlaylistCompare(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req playlistCompareRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.PlaylistIDs) != 2 {
		s.fail(w, r, apperr.New(apperr.CodeMissingInput, "exactly two playlist_ids are required"))
		return
	}

	first, err := s.playlistTrackList(r, token, req.PlaylistIDs[0])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	second, err := s.playlistTrackList(r, token, req.PlaylistIDs[1])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	inSecond := make(map[string]bool, len(second))
	for _, t := range second {
		inSecond[t.ID] = true
	}
	shared := make([]playlistTrack, 0)
	for _, t := range first {
		if inSecond[t.ID] {
			shared = append(shared, t)
		}
	}

	smaller := len(first)
	if len(second) < smaller {
		smaller = len(second)
	}
	overlap := 0.0
	if smaller > 0 {
		overlap = float64(len(shared)) / float64(smaller) * 100
	}

	respondData(w, http.StatusOK, map[string]any{
		"shared_tracks":   shared,
		"shared_count":    len(shared),
		"overlap_percent": overlap,
		"track_counts":    []int{len(first), len(second)},
	})
}

type createGroupPlaylistRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TrackURIs   []string `json:"track_uris"`
}

// handleCreateGroupPlaylist creates a private playlist seeded with the
// group's shared tracks (POST /api/v1/playlists/create-group).
func (s *Server) handleCreateGroupPlaylist(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.AccessToken(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req createGroupPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Name == "" {
		s.fail(w, r, apperr.New(apperr.CodeMissingInput, "playlist name is required"))
		return
	}

	profile, err := s.spotify.Profile(r.Context(), token)
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}

	playlist, err := s.spotify.CreatePlaylist(r.Context(), token, profile.ID, req.Name, req.Description)
	if err != nil {
		s.fail(w, r, s.upstreamError(err))
		return
	}

	if len(req.TrackURIs) > 0 {
		if err := s.spotify.AddTracks(r.Context(), token, playlist.ID, req.TrackURIs); err != nil {
			s.fail(w, r, s.upstreamError(err))
			return
		}
	}

	respondData(w, http.StatusCreated, playlist.Raw)
}
