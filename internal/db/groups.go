package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupRepository handles Barkada group session database operations.
type GroupRepository struct {
	pool *pgxpool.Pool
}

const groupColumns = `
	id, session_code, creator_id, name, description, is_active,
	max_participants, current_track, playback_state, sync_data,
	expires_at, created_at, updated_at
`

// activeWhere scopes queries to sessions that are flagged active and not
// past their expiry.
const activeWhere = `is_active AND (expires_at IS NULL OR expires_at > NOW())`

// Create inserts a new group session.
func (r *GroupRepository) Create(ctx context.Context, s *GroupSession) error {
	query := `
		INSERT INTO barkada_sessions
			(id, session_code, creator_id, name, description, is_active, max_participants, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		s.ID,
		s.Code,
		s.CreatorID,
		s.Name,
		s.Description,
		s.IsActive,
		s.MaxParticipants,
		s.ExpiresAt,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting group session: %w", err)
	}
	return nil
}

// CodeExists reports whether a session code is already taken.
func (r *GroupRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM barkada_sessions WHERE session_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking session code: %w", err)
	}
	return exists, nil
}

// GetActiveByCode retrieves an active, unexpired session by code.
func (r *GroupRepository) GetActiveByCode(ctx context.Context, code string) (*GroupSession, error) {
	query := `SELECT ` + groupColumns + ` FROM barkada_sessions WHERE session_code = $1 AND ` + activeWhere
	return r.scanOne(r.pool.QueryRow(ctx, query, code))
}

// ListActiveForUser lists active sessions the user created or participates
// in.
func (r *GroupRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]GroupSession, error) {
	query := `
		SELECT DISTINCT
			s.id, s.session_code, s.creator_id, s.name, s.description, s.is_active,
			s.max_participants, s.current_track, s.playback_state, s.sync_data,
			s.expires_at, s.created_at, s.updated_at
		FROM barkada_sessions s
		LEFT JOIN session_users su ON su.session_id = s.id
		WHERE (s.creator_id = $1 OR su.user_id = $1)
			AND s.is_active AND (s.expires_at IS NULL OR s.expires_at > NOW())`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing group sessions: %w", err)
	}
	defer rows.Close()

	var sessions []GroupSession
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// AddParticipant adds a user to a session, reactivating the row if the user
// previously left.
func (r *GroupRepository) AddParticipant(ctx context.Context, sessionID, userID uuid.UUID) error {
	query := `
		INSERT INTO session_users (session_id, user_id, joined_at, is_active)
		VALUES ($1, $2, NOW(), TRUE)
		ON CONFLICT (session_id, user_id) DO UPDATE SET is_active = TRUE
	`
	if _, err := r.pool.Exec(ctx, query, sessionID, userID); err != nil {
		return fmt.Errorf("adding participant: %w", err)
	}
	return nil
}

// SetParticipantActive flips a participant's active flag. The row is kept
// either way (soft leave).
func (r *GroupRepository) SetParticipantActive(ctx context.Context, sessionID, userID uuid.UUID, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE session_users SET is_active = $3 WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID, active,
	)
	if err != nil {
		return fmt.Errorf("updating participant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasParticipant reports whether the user is an active participant.
func (r *GroupRepository) HasParticipant(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM session_users WHERE session_id = $1 AND user_id = $2 AND is_active)`,
		sessionID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking participant: %w", err)
	}
	return exists, nil
}

// ActiveParticipants lists the active participants of a session with their
// user fields.
func (r *GroupRepository) ActiveParticipants(ctx context.Context, sessionID uuid.UUID) ([]Participant, error) {
	query := `
		SELECT u.id, u.spotify_id, u.display_name, u.avatar_url, su.joined_at, su.is_active
		FROM session_users su
		JOIN users u ON u.id = su.user_id
		WHERE su.session_id = $1 AND su.is_active
		ORDER BY su.joined_at
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.SpotifyID, &p.DisplayName, &p.AvatarURL, &p.JoinedAt, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ActiveParticipantCount counts active participants.
func (r *GroupRepository) ActiveParticipantCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_users WHERE session_id = $1 AND is_active`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting participants: %w", err)
	}
	return count, nil
}

// End deactivates a session and all of its participants.
func (r *GroupRepository) End(ctx context.Context, sessionID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE barkada_sessions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, sessionID,
	); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE session_users SET is_active = FALSE WHERE session_id = $1`, sessionID,
	); err != nil {
		return fmt.Errorf("deactivating participants: %w", err)
	}
	return tx.Commit(ctx)
}

// UpdatePlayback stores the latest playback sync blobs.
func (r *GroupRepository) UpdatePlayback(ctx context.Context, sessionID uuid.UUID, currentTrack, playbackState, syncData json.RawMessage) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE barkada_sessions
		SET current_track = $2, playback_state = $3, sync_data = $4, updated_at = NOW()
		WHERE id = $1`,
		sessionID, currentTrack, playbackState, syncData,
	)
	if err != nil {
		return fmt.Errorf("updating playback: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *GroupRepository) scanOne(row rowScanner) (*GroupSession, error) {
	var s GroupSession
	err := row.Scan(
		&s.ID,
		&s.Code,
		&s.CreatorID,
		&s.Name,
		&s.Description,
		&s.IsActive,
		&s.MaxParticipants,
		&s.CurrentTrack,
		&s.PlaybackState,
		&s.SyncData,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning group session: %w", err)
	}
	return &s, nil
}
