// Package auth implements the multi-party Spotify authorization-code flow:
// authorization URL generation, the callback state machine, token refresh,
// and the per-friend-slot session bookkeeping behind all of them.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/barkadahq/spotify-mirror/internal/apperr"
	"github.com/barkadahq/spotify-mirror/internal/db"
	"github.com/barkadahq/spotify-mirror/internal/session"
	"github.com/barkadahq/spotify-mirror/internal/spotify"
)

// Authorizer is the provider-side surface of the OAuth flow.
type Authorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// UserStore persists mirrored Spotify identities.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
}

// ProfileAPI fetches the authenticated profile with a fresh access token.
type ProfileAPI interface {
	Profile(ctx context.Context, token string) (*spotify.Profile, error)
}

// TokenMinter mints application API tokens bound to a local user.
type TokenMinter interface {
	Mint(userID uuid.UUID) (string, error)
}

// Service implements the authorization flow.
type Service struct {
	store       session.Store
	users       UserStore
	profiles    ProfileAPI
	provider    Authorizer
	tokens      TokenMinter
	strictState bool
	logger      *zap.Logger
}

// NewService creates the auth service. strictState controls whether a state
// mismatch aborts the callback (the default) or is logged and tolerated.
func NewService(store session.Store, users UserStore, profiles ProfileAPI, provider Authorizer, tokens TokenMinter, strictState bool, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		users:       users,
		profiles:    profiles,
		provider:    provider,
		tokens:      tokens,
		strictState: strictState,
		logger:      logger,
	}
}

// Authorization is the result of AuthorizationURL.
type Authorization struct {
	URL        string `json:"authUrl"`
	State      string `json:"state"`
	FriendSlot string `json:"friend_slot"`
}

// AuthorizationURL generates a fresh state token for the friend slot, stores
// it as the slot's pending state (invalidating any prior pending login for
// that slot) and returns the provider authorization URL.
func (s *Service) AuthorizationURL(ctx context.Context, sessionID, friendSlot string) (*Authorization, error) {
	if friendSlot == "" {
		friendSlot = DefaultSlot
	}

	state, err := generateState()
	if err != nil {
		return nil, apperr.Internal("failed to generate auth URL", err)
	}

	if err := s.store.Put(ctx, sessionID, StateKey(friendSlot), state); err != nil {
		return nil, apperr.Internal("failed to generate auth URL", err)
	}

	return &Authorization{
		URL:        s.provider.AuthCodeURL(state),
		State:      state,
		FriendSlot: friendSlot,
	}, nil
}

// CallbackUser is the user portion of a callback response.
type CallbackUser struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"display_name"`
	Email       *string            `json:"email"`
	SpotifyID   string             `json:"spotify_id"`
	Images      []spotify.Image    `json:"images"`
	Country     string             `json:"country,omitempty"`
	Followers   *spotify.Followers `json:"followers,omitempty"`
}

// CallbackResult is the data payload of a successful callback.
type CallbackResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	APIToken     string       `json:"api_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         CallbackUser `json:"user"`
	FriendSlot   string       `json:"friend_slot"`
}

// HandleCallback validates the state, exchanges the code, fetches and
// upserts the profile, persists the slot's tokens and mints an API token.
func (s *Service) HandleCallback(ctx context.Context, sessionID, code, state, friendSlot string) (*CallbackResult, error) {
	if code == "" {
		return nil, apperr.New(apperr.CodeMissingInput, "authorization code is required")
	}

	actualState, slot := ResolveSlot(state, friendSlot)

	storedState, err := s.store.Get(ctx, sessionID, StateKey(slot))
	if errors.Is(err, session.ErrNotFound) {
		storedState, err = s.store.Get(ctx, sessionID, StateKey(DefaultSlot))
	}
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, apperr.Internal("authentication failed", err)
	}

	if actualState == "" || actualState != storedState {
		s.logger.Warn("state validation failed",
			zap.String("provided", actualState),
			zap.String("friend_slot", slot),
		)
		if s.strictState {
			return nil, apperr.New(apperr.CodeMissingInput, "invalid state parameter")
		}
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("token exchange failed", zap.Error(err))
		return nil, &apperr.Error{
			Code:    apperr.CodeUpstreamAuth,
			Message: "failed to exchange code for tokens",
			Details: upstreamBody(err),
			Err:     err,
		}
	}

	profile, err := s.profiles.Profile(ctx, token.AccessToken)
	if err != nil {
		s.logger.Error("profile fetch failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeUpstreamAuth, "failed to fetch user profile", err)
	}

	user := &db.User{
		SpotifyID:   profile.ID,
		DisplayName: profile.Name(),
		Profile:     profile.Raw,
	}
	if profile.Email != "" {
		user.Email = &profile.Email
	}
	if avatar := profile.AvatarURL(); avatar != "" {
		user.AvatarURL = &avatar
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, apperr.Internal("authentication failed", err)
	}

	if err := s.persistTokens(ctx, sessionID, token); err != nil {
		return nil, apperr.Internal("authentication failed", err)
	}
	if err := s.store.Put(ctx, sessionID, KeyUserID, user.ID.String()); err != nil {
		return nil, apperr.Internal("authentication failed", err)
	}

	entry := SlotEntry{
		UserID:       user.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		FriendSlot:   slot,
		AddedAt:      time.Now().UTC(),
	}
	if err := session.PutJSON(ctx, s.store, sessionID, SlotUserKey(slot), entry); err != nil {
		return nil, apperr.Internal("authentication failed", err)
	}

	apiToken, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, apperr.Internal("authentication failed", err)
	}

	// Pending states are single-use.
	if err := s.store.Delete(ctx, sessionID, StateKey(slot), StateKey(DefaultSlot)); err != nil {
		s.logger.Warn("failed to clear pending state", zap.Error(err))
	}

	result := &CallbackResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		APIToken:     apiToken,
		ExpiresIn:    expiresIn(token),
		FriendSlot:   slot,
		User: CallbackUser{
			ID:          user.SpotifyID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			SpotifyID:   user.SpotifyID,
			Images:      profile.Images,
			Country:     profile.Country,
		},
	}
	if profile.Followers.Total > 0 {
		followers := profile.Followers
		result.User.Followers = &followers
	}
	if result.User.Images == nil {
		result.User.Images = []spotify.Image{}
	}
	return result, nil
}

// RefreshResult is the data payload of a successful refresh.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges a refresh token for a new token pair. When refreshToken
// is empty the session's stored token is used. A provider response without a
// new refresh token keeps the prior one.
func (s *Service) Refresh(ctx context.Context, sessionID, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		stored, err := s.store.Get(ctx, sessionID, KeyRefreshToken)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, apperr.Internal("token refresh failed", err)
		}
		refreshToken = stored
	}
	if refreshToken == "" {
		return nil, apperr.New(apperr.CodeMissingInput, "no refresh token provided")
	}

	token, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		s.logger.Error("token refresh failed", zap.Error(err))
		return nil, &apperr.Error{
			Code:    apperr.CodeUpstreamAuth,
			Message: "failed to refresh token",
			Details: upstreamBody(err),
			Err:     err,
		}
	}

	// Spotify may omit the rotated refresh token; the prior one stays valid.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	if err := s.persistTokens(ctx, sessionID, token); err != nil {
		return nil, apperr.Internal("token refresh failed", err)
	}

	return &RefreshResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn(token),
	}, nil
}

// BarkadaUser is one authenticated friend in the browser session.
type BarkadaUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       *string   `json:"email"`
	AvatarURL   *string   `json:"avatar_url"`
	FriendSlot  string    `json:"friend_slot"`
	AccessToken string    `json:"access_token"`
	AddedAt     time.Time `json:"added_at"`
}

// BarkadaUsers lists every friend slot's authenticated user in the session.
// Slots whose user row has disappeared are skipped.
func (s *Service) BarkadaUsers(ctx context.Context, sessionID string) ([]BarkadaUser, error) {
	keys, err := s.store.Keys(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal("failed to get barkada users", err)
	}

	users := make([]BarkadaUser, 0)
	for _, key := range keys {
		if !IsSlotUserKey(key) {
			continue
		}
		var entry SlotEntry
		if err := session.GetJSON(ctx, s.store, sessionID, key, &entry); err != nil {
			continue
		}
		user, err := s.users.Get(ctx, entry.UserID)
		if err != nil {
			continue
		}
		users = append(users, BarkadaUser{
			ID:          user.SpotifyID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			AvatarURL:   user.AvatarURL,
			FriendSlot:  entry.FriendSlot,
			AccessToken: entry.AccessToken,
			AddedAt:     entry.AddedAt,
		})
	}
	return users, nil
}

// ClearBarkada removes every friend slot entry and pending state from the
// session, ending the multi-login without touching the default login keys.
func (s *Service) ClearBarkada(ctx context.Context, sessionID string) error {
	keys, err := s.store.Keys(ctx, sessionID)
	if err != nil {
		return apperr.Internal("failed to clear barkada session", err)
	}
	var toDelete []string
	for _, key := range keys {
		if IsSlotUserKey(key) || IsStateKey(key) {
			toDelete = append(toDelete, key)
		}
	}
	if err := s.store.Delete(ctx, sessionID, toDelete...); err != nil {
		return apperr.Internal("failed to clear barkada session", err)
	}
	return nil
}

// Logout clears all auth state from the session: slot entries, pending
// states and the default token keys.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.ClearBarkada(ctx, sessionID); err != nil {
		return err
	}
	err := s.store.Delete(ctx, sessionID,
		KeyUserID, KeyAccessToken, KeyRefreshToken, KeyTokenExpiresAt,
	)
	if err != nil {
		return apperr.Internal("logout failed", err)
	}
	return nil
}

// AccessToken returns the session's default access token, if any.
func (s *Service) AccessToken(ctx context.Context, sessionID string) (string, error) {
	token, err := s.store.Get(ctx, sessionID, KeyAccessToken)
	if errors.Is(err, session.ErrNotFound) || token == "" {
		return "", apperr.New(apperr.CodeUnauthorized, "no access token found")
	}
	if err != nil {
		return "", apperr.Internal("failed to read session", err)
	}
	return token, nil
}

func (s *Service) persistTokens(ctx context.Context, sessionID string, token *oauth2.Token) error {
	if err := s.store.Put(ctx, sessionID, KeyAccessToken, token.AccessToken); err != nil {
		return err
	}
	if err := s.store.Put(ctx, sessionID, KeyRefreshToken, token.RefreshToken); err != nil {
		return err
	}
	return s.store.Put(ctx, sessionID, KeyTokenExpiresAt, token.Expiry.UTC().Format(time.RFC3339))
}

func expiresIn(token *oauth2.Token) int64 {
	if token.Expiry.IsZero() {
		return 0
	}
	return int64(math.Round(time.Until(token.Expiry).Seconds()))
}

// generateState creates a random state string for OAuth. 16 random bytes hex
// encoded; unguessable, and free of the "_" slot delimiter.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
