package spotify

import (
	"encoding/json"
	"fmt"
)

// APIError is returned when Spotify responds with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Body)
}

// IsAuthError reports whether the error indicates a rejected or expired
// token.
func (e *APIError) IsAuthError() bool {
	return e.Status == 401 || e.Status == 403
}

// Image is a provider image reference.
type Image struct {
	URL string `json:"url"`
}

// Followers carries the follower count from a profile payload.
type Followers struct {
	Total int `json:"total"`
}

// Profile is the authenticated user's profile. Raw retains the full provider
// payload for pass-through responses.
type Profile struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Email       string          `json:"email"`
	Country     string          `json:"country"`
	Images      []Image         `json:"images"`
	Followers   Followers       `json:"followers"`
	Raw         json.RawMessage `json:"-"`
}

// Name returns the display name, falling back to the Spotify ID.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// AvatarURL returns the first profile image URL, if any.
func (p *Profile) AvatarURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// Artist is a track or top-artist entry.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// Track is a top-track entry.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Artists []Artist `json:"artists"`
}

// TrackPage is a page of tracks. Raw retains the full provider payload.
type TrackPage struct {
	Items []Track         `json:"items"`
	Total int             `json:"total"`
	Raw   json.RawMessage `json:"-"`
}

// ArtistPage is a page of artists. Raw retains the full provider payload.
type ArtistPage struct {
	Items []Artist        `json:"items"`
	Total int             `json:"total"`
	Raw   json.RawMessage `json:"-"`
}

// Playlist is a created playlist. Raw retains the full provider payload.
type Playlist struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Raw  json.RawMessage `json:"-"`
}
