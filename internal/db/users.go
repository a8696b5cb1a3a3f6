package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates or updates a user keyed by Spotify ID, filling in the
// generated local ID and timestamps.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, spotify_id, display_name, email, avatar_url, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			avatar_url = EXCLUDED.avatar_url,
			profile = EXCLUDED.profile,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		uuid.New(),
		user.SpotifyID,
		user.DisplayName,
		user.Email,
		user.AvatarURL,
		user.Profile,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// Get retrieves a user by local ID.
func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetBySpotifyID retrieves a user by Spotify ID.
func (r *UserRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*User, error) {
	return r.getBy(ctx, "spotify_id = $1", spotifyID)
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, spotify_id, display_name, email, avatar_url, profile, created_at, updated_at
		FROM users
		WHERE ` + where
	var user User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.SpotifyID,
		&user.DisplayName,
		&user.Email,
		&user.AvatarURL,
		&user.Profile,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}
