// Package groups manages Barkada group sessions: shareable, code-identified
// records grouping multiple users for joint music analysis.
package groups

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/barkadahq/spotify-mirror/internal/apperr"
	"github.com/barkadahq/spotify-mirror/internal/db"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	CodeChecker
	Create(ctx context.Context, s *db.GroupSession) error
	GetActiveByCode(ctx context.Context, code string) (*db.GroupSession, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]db.GroupSession, error)
	AddParticipant(ctx context.Context, sessionID, userID uuid.UUID) error
	SetParticipantActive(ctx context.Context, sessionID, userID uuid.UUID, active bool) error
	HasParticipant(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)
	ActiveParticipants(ctx context.Context, sessionID uuid.UUID) ([]db.Participant, error)
	ActiveParticipantCount(ctx context.Context, sessionID uuid.UUID) (int, error)
	End(ctx context.Context, sessionID uuid.UUID) error
	UpdatePlayback(ctx context.Context, sessionID uuid.UUID, currentTrack, playbackState, syncData json.RawMessage) error
}

// UserDirectory resolves and creates the user records participants hang off.
type UserDirectory interface {
	Upsert(ctx context.Context, user *db.User) error
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetBySpotifyID(ctx context.Context, spotifyID string) (*db.User, error)
}

// Service implements group session management.
type Service struct {
	repo   Repository
	users  UserDirectory
	logger *zap.Logger
}

// NewService creates the group session service.
func NewService(repo Repository, users UserDirectory, logger *zap.Logger) *Service {
	return &Service{repo: repo, users: users, logger: logger}
}

// CreateParams are the caller-supplied fields of a new session.
type CreateParams struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	MaxParticipants *int   `json:"max_participants"`
	DurationHours   *int   `json:"duration_hours"`
}

// ParticipantView is one participant in a session view.
type ParticipantView struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	JoinedAt    time.Time `json:"joined_at"`
}

// CreatorView is the creator summary in a session view.
type CreatorView struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// SessionView is the full session representation returned to participants.
type SessionView struct {
	ID               uuid.UUID         `json:"id"`
	SessionCode      string            `json:"session_code"`
	Name             string            `json:"name"`
	Description      *string           `json:"description"`
	Creator          CreatorView       `json:"creator"`
	Participants     []ParticipantView `json:"participants"`
	ParticipantCount int               `json:"participant_count"`
	MaxParticipants  *int              `json:"max_participants"`
	IsFull           bool              `json:"is_full"`
	IsActive         bool              `json:"is_active"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        *time.Time        `json:"expires_at"`
}

// Create makes a new session and auto-joins the creator.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, params CreateParams) (*SessionView, error) {
	if params.Name == "" {
		return nil, apperr.New(apperr.CodeMissingInput, "session name is required")
	}

	code, err := GenerateCode(ctx, s.repo)
	if err != nil {
		return nil, apperr.Internal("failed to create session", err)
	}

	sess := &db.GroupSession{
		Code:            code,
		CreatorID:       creatorID,
		Name:            params.Name,
		IsActive:        true,
		MaxParticipants: params.MaxParticipants,
	}
	if params.Description != "" {
		sess.Description = &params.Description
	}
	if params.DurationHours != nil && *params.DurationHours > 0 {
		expires := time.Now().Add(time.Duration(*params.DurationHours) * time.Hour)
		sess.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, apperr.Internal("failed to create session", err)
	}
	if err := s.repo.AddParticipant(ctx, sess.ID, creatorID); err != nil {
		return nil, apperr.Internal("failed to create session", err)
	}

	return s.view(ctx, sess)
}

// Get returns an active session by code.
func (s *Service) Get(ctx context.Context, code string) (*SessionView, error) {
	sess, err := s.findActive(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// List returns the active sessions the user created or participates in.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]SessionView, error) {
	sessions, err := s.repo.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch sessions", err)
	}
	views := make([]SessionView, 0, len(sessions))
	for i := range sessions {
		view, err := s.view(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Join adds a user to an active session, enforcing the participant cap. The
// joining user is created on first sight; a prior soft-left participant is
// reactivated without a new row.
func (s *Service) Join(ctx context.Context, code, spotifyID, userName string) (*SessionView, error) {
	if spotifyID == "" || userName == "" {
		return nil, apperr.New(apperr.CodeMissingInput, "user_name and spotify_id are required")
	}

	sess, err := s.findActive(ctx, code)
	if err != nil {
		return nil, err
	}

	full, err := s.isFull(ctx, sess)
	if err != nil {
		return nil, err
	}
	if full {
		return nil, apperr.New(apperr.CodeForbidden, "session is full")
	}

	user, err := s.users.GetBySpotifyID(ctx, spotifyID)
	if errors.Is(err, db.ErrNotFound) {
		user = &db.User{SpotifyID: spotifyID, DisplayName: userName}
		err = s.users.Upsert(ctx, user)
	}
	if err != nil {
		return nil, apperr.Internal("failed to join session", err)
	}

	if err := s.repo.AddParticipant(ctx, sess.ID, user.ID); err != nil {
		return nil, apperr.Internal("failed to join session", err)
	}

	return s.view(ctx, sess)
}

// Users lists the active participants of a session.
func (s *Service) Users(ctx context.Context, code string) ([]ParticipantView, error) {
	sess, err := s.findActive(ctx, code)
	if err != nil {
		return nil, err
	}
	participants, err := s.repo.ActiveParticipants(ctx, sess.ID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch session users", err)
	}
	return participantViews(participants), nil
}

// Leave marks the user inactive in the session. The participant row is kept,
// so rejoining reactivates it.
func (s *Service) Leave(ctx context.Context, code string, userID uuid.UUID) error {
	sess, err := s.findActive(ctx, code)
	if err != nil {
		return err
	}
	if err := s.repo.SetParticipantActive(ctx, sess.ID, userID, false); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "you are not a participant of this session")
		}
		return apperr.Internal("failed to leave session", err)
	}
	return nil
}

// End deactivates the session and all participants. Creator only.
func (s *Service) End(ctx context.Context, code string, userID uuid.UUID) error {
	sess, err := s.findActive(ctx, code)
	if err != nil {
		return err
	}
	if sess.CreatorID != userID {
		return apperr.New(apperr.CodeForbidden, "only the session creator can end the session")
	}
	if err := s.repo.End(ctx, sess.ID); err != nil {
		return apperr.Internal("failed to end session", err)
	}
	return nil
}

// PlaybackSync is the caller-supplied playback snapshot.
type PlaybackSync struct {
	CurrentTrack  json.RawMessage `json:"current_track"`
	PlaybackState json.RawMessage `json:"playback_state"`
	PositionMS    *int            `json:"position_ms"`
	IsPlaying     *bool           `json:"is_playing"`
}

// PlaybackView is the stored playback snapshot returned after a sync.
type PlaybackView struct {
	CurrentTrack  json.RawMessage `json:"current_track"`
	PlaybackState json.RawMessage `json:"playback_state"`
	SyncData      json.RawMessage `json:"sync_data"`
}

// SyncPlayback stores the latest playback state. Participants only.
func (s *Service) SyncPlayback(ctx context.Context, code string, userID uuid.UUID, sync PlaybackSync) (*PlaybackView, error) {
	sess, err := s.findActive(ctx, code)
	if err != nil {
		return nil, err
	}

	participant, err := s.repo.HasParticipant(ctx, sess.ID, userID)
	if err != nil {
		return nil, apperr.Internal("failed to sync playback", err)
	}
	if !participant {
		return nil, apperr.New(apperr.CodeForbidden, "you are not a participant of this session")
	}

	syncData, err := json.Marshal(map[string]any{
		"updated_by":  userID,
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
		"position_ms": sync.PositionMS,
		"is_playing":  sync.IsPlaying,
	})
	if err != nil {
		return nil, apperr.Internal("failed to sync playback", err)
	}

	if err := s.repo.UpdatePlayback(ctx, sess.ID, sync.CurrentTrack, sync.PlaybackState, syncData); err != nil {
		return nil, apperr.Internal("failed to sync playback", err)
	}

	return &PlaybackView{
		CurrentTrack:  sync.CurrentTrack,
		PlaybackState: sync.PlaybackState,
		SyncData:      syncData,
	}, nil
}

func (s *Service) findActive(ctx context.Context, code string) (*db.GroupSession, error) {
	sess, err := s.repo.GetActiveByCode(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "session not found or expired")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch session", err)
	}
	return sess, nil
}

func (s *Service) isFull(ctx context.Context, sess *db.GroupSession) (bool, error) {
	if sess.MaxParticipants == nil {
		return false, nil
	}
	count, err := s.repo.ActiveParticipantCount(ctx, sess.ID)
	if err != nil {
		return false, apperr.Internal("failed to fetch session", err)
	}
	return count >= *sess.MaxParticipants, nil
}

func (s *Service) view(ctx context.Context, sess *db.GroupSession) (*SessionView, error) {
	creator, err := s.users.Get(ctx, sess.CreatorID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch session", err)
	}
	participants, err := s.repo.ActiveParticipants(ctx, sess.ID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch session", err)
	}

	view := &SessionView{
		ID:               sess.ID,
		SessionCode:      sess.Code,
		Name:             sess.Name,
		Description:      sess.Description,
		Creator:          CreatorView{Name: creator.DisplayName, AvatarURL: creator.AvatarURL},
		Participants:     participantViews(participants),
		ParticipantCount: len(participants),
		MaxParticipants:  sess.MaxParticipants,
		IsActive:         sess.IsActive,
		CreatedAt:        sess.CreatedAt,
		ExpiresAt:        sess.ExpiresAt,
	}
	if sess.MaxParticipants != nil {
		view.IsFull = len(participants) >= *sess.MaxParticipants
	}
	return view, nil
}

func participantViews(participants []db.Participant) []ParticipantView {
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, ParticipantView{
			ID:          p.SpotifyID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			JoinedAt:    p.JoinedAt,
		})
	}
	return views
}
