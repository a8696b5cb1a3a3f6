package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User mirrors a Spotify identity. One row per Spotify ID, upserted on every
// successful login.
type User struct {
	ID          uuid.UUID
	SpotifyID   string
	DisplayName string
	Email       *string // nullable
	AvatarURL   *string // nullable
	Profile     json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GroupSession is a shareable, code-identified Barkada session.
type GroupSession struct {
	ID              uuid.UUID
	Code            string
	CreatorID       uuid.UUID
	Name            string
	Description     *string // nullable
	IsActive        bool
	MaxParticipants *int            // nullable: no cap
	CurrentTrack    json.RawMessage // nullable
	PlaybackState   json.RawMessage // nullable
	SyncData        json.RawMessage // nullable
	ExpiresAt       *time.Time      // nullable: no expiry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Participant is a user's membership in a group session, joined with the
// user's public fields.
type Participant struct {
	UserID      uuid.UUID
	SpotifyID   string
	DisplayName string
	AvatarURL   *string
	JoinedAt    time.Time
	IsActive    bool
}
