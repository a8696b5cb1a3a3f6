package auth

import (
	"context"
	"errors"
	"fmt"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes is the full scope list requested on every login.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserFollowRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeStreaming,
}

// SpotifyExchanger implements Authorizer against Spotify's accounts service.
type SpotifyExchanger struct {
	auth *spotifyauth.Authenticator
}

// NewSpotifyExchanger creates the production exchanger.
func NewSpotifyExchanger(clientID, clientSecret, redirectURI string) *SpotifyExchanger {
	return &SpotifyExchanger{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(clientID),
			spotifyauth.WithClientSecret(clientSecret),
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithScopes(Scopes...),
		),
	}
}

// AuthCodeURL builds the provider authorization URL for the given state,
// forcing the consent dialog on every login.
func (e *SpotifyExchanger) AuthCodeURL(state string) string {
	return e.auth.AuthURL(state, spotifyauth.ShowDialog)
}

// Exchange swaps an authorization code for a token pair.
func (e *SpotifyExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := e.auth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

// Refresh swaps a refresh token for a new token pair.
func (e *SpotifyExchanger) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	token, err := e.auth.RefreshToken(ctx, &oauth2.Token{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	return token, nil
}

// upstreamBody extracts the provider's response body from an oauth2 token
// endpoint error, for diagnostics in error envelopes.
func upstreamBody(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return string(retrieveErr.Body)
	}
	return ""
}
