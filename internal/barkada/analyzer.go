// Package barkada computes group listening analysis across independently
// authenticated users.
package barkada

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/barkadahq/spotify-mirror/internal/spotify"
)

// topItemsLimit bounds the per-user fetches. The group is capped at 6 users
// upstream, so the whole analysis touches at most a few hundred items.
const topItemsLimit = 20

// MusicAPI is the per-user provider surface the analyzer fans out over.
type MusicAPI interface {
	Profile(ctx context.Context, token string) (*spotify.Profile, error)
	TopTracks(ctx context.Context, token string, params spotify.TopItemsParams) (*spotify.TrackPage, error)
	TopArtists(ctx context.Context, token string, params spotify.TopItemsParams) (*spotify.ArtistPage, error)
}

// Analyzer fans out to the provider for each user's listening data and
// merges the results.
type Analyzer struct {
	api    MusicAPI
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(api MusicAPI, logger *zap.Logger) *Analyzer {
	return &Analyzer{api: api, logger: logger}
}

// UserData is one user's slice of the analysis. The provider payloads are
// passed through opaquely for the frontend.
type UserData struct {
	User       json.RawMessage `json:"user"`
	TopTracks  json.RawMessage `json:"top_tracks"`
	TopArtists json.RawMessage `json:"top_artists"`

	tracks []spotify.Track
}

// Summary aggregates the analysis headline numbers. The compatibility score
// is a presentation heuristic, not a similarity metric.
type Summary struct {
	TotalUsers         int      `json:"totalUsers"`
	SharedTracksCount  int      `json:"sharedTracksCount"`
	CompatibilityScore int      `json:"compatibilityScore"`
	CommonGenres       []string `json:"commonGenres"`
}

// Analysis is the full group analysis result.
type Analysis struct {
	Users         []UserData       `json:"users"`
	SharedTracks  []spotify.Track  `json:"sharedTracks"`
	CommonArtists []spotify.Artist `json:"commonArtists"`
	SessionID     string           `json:"sessionId,omitempty"`
	AnalyzedAt    time.Time        `json:"analyzedAt"`
	Summary       Summary          `json:"summary"`
}

// Analyze fetches each token's top tracks, top artists and profile in
// parallel and merges the successes. A failing user is excluded from the
// result, never fatal; fewer than two successful users yields an empty but
// well-formed analysis.
func (a *Analyzer) Analyze(ctx context.Context, tokens []string) *Analysis {
	type indexed struct {
		index int
		data  UserData
	}

	results := make(chan indexed, len(tokens))
	var wg sync.WaitGroup

	for i, tok := range tokens {
		wg.Add(1)
		go func(index int, token string) {
			defer wg.Done()
			data, err := a.fetchUser(ctx, token)
			if err != nil {
				a.logger.Warn("excluding user from group analysis", zap.Int("index", index), zap.Error(err))
				return
			}
			results <- indexed{index: index, data: *data}
		}(i, tok)
	}
	wg.Wait()
	close(results)

	users := make([]UserData, 0, len(tokens))
	byIndex := make(map[int]UserData, len(tokens))
	for r := range results {
		byIndex[r.index] = r.data
	}
	for i := range tokens {
		if data, ok := byIndex[i]; ok {
			users = append(users, data)
		}
	}

	shared := sharedTracks(users)

	return &Analysis{
		Users:         users,
		SharedTracks:  shared,
		CommonArtists: []spotify.Artist{},
		AnalyzedAt:    time.Now().UTC(),
		Summary: Summary{
			TotalUsers:         len(users),
			SharedTracksCount:  len(shared),
			CompatibilityScore: compatibilityScore(len(shared), len(users)),
			CommonGenres:       []string{},
		},
	}
}

func (a *Analyzer) fetchUser(ctx context.Context, token string) (*UserData, error) {
	params := spotify.TopItemsParams{Limit: topItemsLimit}

	tracks, err := a.api.TopTracks(ctx, token, params)
	if err != nil {
		return nil, err
	}
	artists, err := a.api.TopArtists(ctx, token, params)
	if err != nil {
		return nil, err
	}
	profile, err := a.api.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	return &UserData{
		User:       profile.Raw,
		TopTracks:  tracks.Raw,
		TopArtists: artists.Raw,
		tracks:     tracks.Items,
	}, nil
}

// sharedTracks uses the first successful user's top tracks as the pivot set:
// for every user, up to 5 pivot tracks also present in that user's list are
// collected, then the combined list is deduplicated.
func sharedTracks(users []UserData) []spotify.Track {
	if len(users) < 2 {
		return []spotify.Track{}
	}

	pivot := users[0].tracks
	var combined []spotify.Track
	for _, user := range users {
		ids := make(map[string]struct{}, len(user.tracks))
		for _, track := range user.tracks {
			ids[track.ID] = struct{}{}
		}
		matches := 0
		for _, track := range pivot {
			if _, ok := ids[track.ID]; ok {
				combined = append(combined, track)
				matches++
				if matches == 5 {
					break
				}
			}
		}
	}

	seen := make(map[string]struct{}, len(combined))
	deduped := make([]spotify.Track, 0, len(combined))
	for _, track := range combined {
		if _, ok := seen[track.ID]; ok {
			continue
		}
		seen[track.ID] = struct{}{}
		deduped = append(deduped, track)
	}
	return deduped
}

// compatibilityScore is monotonic in both inputs and clamped to [0, 100].
func compatibilityScore(shared, users int) int {
	if users < 2 {
		return 0
	}
	score := shared*10 + users*5
	if score > 100 {
		return 100
	}
	return score
}
