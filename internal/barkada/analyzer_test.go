package barkada

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/barkadahq/spotify-mirror/internal/spotify"
)

// fakeMusicAPI serves per-token canned data; unknown tokens fail every call.
type fakeMusicAPI struct {
	tracks map[string][]spotify.Track
}

func (f *fakeMusicAPI) TopTracks(ctx context.Context, token string, params spotify.TopItemsParams) (*spotify.TrackPage, error) {
	tracks, ok := f.tracks[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &spotify.TrackPage{
		Items: tracks,
		Total: len(tracks),
		Raw:   json.RawMessage(fmt.Sprintf(`{"total":%d}`, len(tracks))),
	}, nil
}

func (f *fakeMusicAPI) TopArtists(ctx context.Context, token string, params spotify.TopItemsParams) (*spotify.ArtistPage, error) {
	if _, ok := f.tracks[token]; !ok {
		return nil, errors.New("invalid token")
	}
	return &spotify.ArtistPage{Raw: json.RawMessage(`{"items":[]}`)}, nil
}

func (f *fakeMusicAPI) Profile(ctx context.Context, token string) (*spotify.Profile, error) {
	if _, ok := f.tracks[token]; !ok {
		return nil, errors.New("invalid token")
	}
	return &spotify.Profile{
		ID:  "user-" + token,
		Raw: json.RawMessage(fmt.Sprintf(`{"id":"user-%s"}`, token)),
	}, nil
}

func track(id string) spotify.Track {
	return spotify.Track{ID: id, Name: "track " + id}
}

func trackList(ids ...string) []spotify.Track {
	tracks := make([]spotify.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, track(id))
	}
	return tracks
}

func TestAnalyzeExcludesFailingUser(t *testing.T) {
	api := &fakeMusicAPI{tracks: map[string][]spotify.Track{
		"tok1": trackList("a", "b", "c"),
		"tok3": trackList("b", "c", "d"),
	}}
	analyzer := NewAnalyzer(api, zaptest.NewLogger(t))

	analysis := analyzer.Analyze(context.Background(), []string{"tok1", "tok2", "tok3"})

	require.Len(t, analysis.Users, 2)
	assert.Equal(t, 2, analysis.Summary.TotalUsers)
	// Success order follows token order.
	assert.JSONEq(t, `{"id":"user-tok1"}`, string(analysis.Users[0].User))
	assert.JSONEq(t, `{"id":"user-tok3"}`, string(analysis.Users[1].User))
}

func TestAnalyzeFewerThanTwoUsers(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
	}{
		{name: "no tokens", tokens: nil},
		{name: "single user", tokens: []string{"tok1"}},
		{name: "all failing", tokens: []string{"bad1", "bad2"}},
	}

	api := &fakeMusicAPI{tracks: map[string][]spotify.Track{
		"tok1": trackList("a", "b"),
	}}
	analyzer := NewAnalyzer(api, zaptest.NewLogger(t))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := analyzer.Analyze(context.Background(), tt.tokens)

			require.NotNil(t, analysis)
			assert.Empty(t, analysis.SharedTracks)
			assert.Zero(t, analysis.Summary.SharedTracksCount)
			assert.Zero(t, analysis.Summary.CompatibilityScore)
			assert.NotNil(t, analysis.SharedTracks)
			assert.NotNil(t, analysis.CommonArtists)
			assert.False(t, analysis.AnalyzedAt.IsZero())
		})
	}
}

func TestSharedTracksPivot(t *testing.T) {
	// Pivot is the first user's list. Each user contributes at most five
	// matches; the combined list is deduplicated.
	users := []UserData{
		{tracks: trackList("a", "b", "c", "d", "e", "f", "g")},
		{tracks: trackList("a", "b", "c", "d", "e", "f")},
		{tracks: trackList("a", "z")},
	}

	shared := sharedTracks(users)

	ids := make([]string, 0, len(shared))
	for _, tr := range shared {
		ids = append(ids, tr.ID)
	}
	// User 1 (the pivot itself) and user 2 both match a-e, capped at 5;
	// user 3 re-adds only "a". Dedupe leaves a-e.
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestSharedTracksNoOverlap(t *testing.T) {
	users := []UserData{
		{tracks: trackList("a", "b")},
		{tracks: trackList("x", "y")},
	}

	// The pivot always matches itself, so its own tracks appear.
	shared := sharedTracks(users)
	assert.Len(t, shared, 2)
}

func TestCompatibilityScore(t *testing.T) {
	tests := []struct {
		shared int
		users  int
		want   int
	}{
		{shared: 0, users: 0, want: 0},
		{shared: 5, users: 1, want: 0},
		{shared: 0, users: 2, want: 10},
		{shared: 3, users: 2, want: 40},
		{shared: 10, users: 4, want: 100},
		{shared: 50, users: 6, want: 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compatibilityScore(tt.shared, tt.users),
			"shared=%d users=%d", tt.shared, tt.users)
	}
}
