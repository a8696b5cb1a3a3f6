// Package spotify provides a thin pass-through client for the Spotify Web
// API. Only the fields the service itself consumes are typed; everything else
// is carried opaquely as raw JSON for the frontend.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	userAgent      = "barkada-mirror/1.0"
)

// Client calls the Spotify Web API with a caller-supplied bearer token. A
// single Client is shared across all authenticated users; the token travels
// per call because every friend slot holds its own credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Spotify Web API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopItemsParams bound the paged top-items endpoints.
type TopItemsParams struct {
	Limit     int    // default 20
	TimeRange string // short_term, medium_term, long_term; default medium_term
}

func (p TopItemsParams) query() url.Values {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	timeRange := p.TimeRange
	if timeRange == "" {
		timeRange = "medium_term"
	}
	return url.Values{
		"limit":      {strconv.Itoa(limit)},
		"time_range": {timeRange},
	}
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	raw, err := c.get(ctx, token, "/me", nil)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	profile.Raw = raw
	return &profile, nil
}

// TopTracks fetches the user's top tracks.
func (c *Client) TopTracks(ctx context.Context, token string, params TopItemsParams) (*TrackPage, error) {
	raw, err := c.get(ctx, token, "/me/top/tracks", params.query())
	if err != nil {
		return nil, err
	}
	var page TrackPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("parsing top tracks: %w", err)
	}
	page.Raw = raw
	return &page, nil
}

// TopArtists fetches the user's top artists.
func (c *Client) TopArtists(ctx context.Context, token string, params TopItemsParams) (*ArtistPage, error) {
	raw, err := c.get(ctx, token, "/me/top/artists", params.query())
	if err != nil {
		return nil, err
	}
	var page ArtistPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("parsing top artists: %w", err)
	}
	page.Raw = raw
	return &page, nil
}

// RecentlyPlayed fetches the user's recently played tracks, passed through.
func (c *Client) RecentlyPlayed(ctx context.Context, token string, limit int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return c.get(ctx, token, "/me/player/recently-played", url.Values{"limit": {strconv.Itoa(limit)}})
}

// SavedTracks fetches the user's saved tracks, passed through.
func (c *Client) SavedTracks(ctx context.Context, token string, limit, offset int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	return c.get(ctx, token, "/me/tracks", url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	})
}

// FollowedArtists fetches the artists the user follows, passed through.
func (c *Client) FollowedArtists(ctx context.Context, token string, limit int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	return c.get(ctx, token, "/me/following", url.Values{
		"type":  {"artist"},
		"limit": {strconv.Itoa(limit)},
	})
}

// Playlists fetches the user's playlists, passed through.
func (c *Client) Playlists(ctx context.Context, token string, limit, offset int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	return c.get(ctx, token, "/me/playlists", url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	})
}

// Playlist fetches a playlist by ID, passed through.
func (c *Client) Playlist(ctx context.Context, token, id string) (json.RawMessage, error) {
	return c.get(ctx, token, "/playlists/"+url.PathEscape(id), nil)
}

// PlaylistTracks fetches a playlist's tracks, passed through.
func (c *Client) PlaylistTracks(ctx context.Context, token, id string, limit, offset int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	return c.get(ctx, token, "/playlists/"+url.PathEscape(id)+"/tracks", url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	})
}

// CreatePlaylist creates a private playlist for the given user.
func (c *Client) CreatePlaylist(ctx context.Context, token, userID, name, description string) (*Playlist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}
	raw, err := c.post(ctx, token, "/users/"+url.PathEscape(userID)+"/playlists", body)
	if err != nil {
		return nil, err
	}
	var playlist Playlist
	if err := json.Unmarshal(raw, &playlist); err != nil {
		return nil, fmt.Errorf("parsing created playlist: %w", err)
	}
	playlist.Raw = raw
	return &playlist, nil
}

// AddTracks appends tracks to a playlist by URI.
func (c *Client) AddTracks(ctx context.Context, token, playlistID string, uris []string) error {
	_, err := c.post(ctx, token, "/playlists/"+url.PathEscape(playlistID)+"/tracks", map[string]any{
		"uris": uris,
	})
	return err
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, token)
}

func (c *Client) post(ctx context.Context, token, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token)
}

func (c *Client) do(req *http.Request, token string) (json.RawMessage, error) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return json.RawMessage(body), nil
}
