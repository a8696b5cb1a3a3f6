package groups

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/barkadahq/spotify-mirror/internal/apperr"
	"github.com/barkadahq/spotify-mirror/internal/db"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	sessions     map[uuid.UUID]*db.GroupSession
	participants map[uuid.UUID]map[uuid.UUID]*db.Participant
	users        map[uuid.UUID]*db.User
	bySpotifyID  map[string]uuid.UUID
}

func newMemRepo() *memRepo {
	return &memRepo{
		sessions:     make(map[uuid.UUID]*db.GroupSession),
		participants: make(map[uuid.UUID]map[uuid.UUID]*db.Participant),
		users:        make(map[uuid.UUID]*db.User),
		bySpotifyID:  make(map[string]uuid.UUID),
	}
}

func (m *memRepo) Create(ctx context.Context, s *db.GroupSession) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.sessions[s.ID] = s
	m.participants[s.ID] = make(map[uuid.UUID]*db.Participant)
	return nil
}

func (m *memRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	for _, s := range m.sessions {
		if s.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) GetActiveByCode(ctx context.Context, code string) (*db.GroupSession, error) {
	for _, s := range m.sessions {
		if s.Code != code || !s.IsActive {
			continue
		}
		if s.ExpiresAt != nil && !s.ExpiresAt.After(time.Now()) {
			continue
		}
		return s, nil
	}
	return nil, db.ErrNotFound
}

func (m *memRepo) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]db.GroupSession, error) {
	var out []db.GroupSession
	for id, s := range m.sessions {
		if !s.IsActive {
			continue
		}
		if p, ok := m.participants[id][userID]; (ok && p.IsActive) || s.CreatorID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) AddParticipant(ctx context.Context, sessionID, userID uuid.UUID) error {
	if p, ok := m.participants[sessionID][userID]; ok {
		p.IsActive = true
		return nil
	}
	user := m.users[userID]
	m.participants[sessionID][userID] = &db.Participant{
		UserID:      userID,
		SpotifyID:   user.SpotifyID,
		DisplayName: user.DisplayName,
		JoinedAt:    time.Now(),
		IsActive:    true,
	}
	return nil
}

func (m *memRepo) SetParticipantActive(ctx context.Context, sessionID, userID uuid.UUID, active bool) error {
	p, ok := m.participants[sessionID][userID]
	if !ok {
		return db.ErrNotFound
	}
	p.IsActive = active
	return nil
}

func (m *memRepo) HasParticipant(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	p, ok := m.participants[sessionID][userID]
	return ok && p.IsActive, nil
}

func (m *memRepo) ActiveParticipants(ctx context.Context, sessionID uuid.UUID) ([]db.Participant, error) {
	var out []db.Participant
	for _, p := range m.participants[sessionID] {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memRepo) ActiveParticipantCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	participants, _ := m.ActiveParticipants(ctx, sessionID)
	return len(participants), nil
}

func (m *memRepo) End(ctx context.Context, sessionID uuid.UUID) error {
	m.sessions[sessionID].IsActive = false
	for _, p := range m.participants[sessionID] {
		p.IsActive = false
	}
	return nil
}

func (m *memRepo) UpdatePlayback(ctx context.Context, sessionID uuid.UUID, currentTrack, playbackState, syncData json.RawMessage) error {
	s := m.sessions[sessionID]
	s.CurrentTrack = currentTrack
	s.PlaybackState = playbackState
	s.SyncData = syncData
	return nil
}

func (m *memRepo) Upsert(ctx context.Context, user *db.User) error {
	id, ok := m.bySpotifyID[user.SpotifyID]
	if !ok {
		id = uuid.New()
		m.bySpotifyID[user.SpotifyID] = id
	}
	user.ID = id
	stored := *user
	m.users[id] = &stored
	return nil
}

func (m *memRepo) Get(ctx context.Context, id uuid.UUID) (*db.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return user, nil
}

func (m *memRepo) GetBySpotifyID(ctx context.Context, spotifyID string) (*db.User, error) {
	id, ok := m.bySpotifyID[spotifyID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return m.users[id], nil
}

func (m *memRepo) addUser(t *testing.T, spotifyID, name string) uuid.UUID {
	t.Helper()
	user := &db.User{SpotifyID: spotifyID, DisplayName: name}
	require.NoError(t, m.Upsert(context.Background(), user))
	return user.ID
}

func newGroupFixture(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	return NewService(repo, repo, zaptest.NewLogger(t)), repo
}

func errCode(t *testing.T, err error) apperr.Code {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func intPtr(n int) *int { return &n }

func TestCreateSession(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")

	hours := 2
	view, err := svc.Create(ctx, creator, CreateParams{
		Name:            "Road Trip",
		Description:     "songs for the drive",
		MaxParticipants: intPtr(4),
		DurationHours:   &hours,
	})
	require.NoError(t, err)

	assert.Regexp(t, `^[A-Z0-9]{6}$`, view.SessionCode)
	assert.Equal(t, "Road Trip", view.Name)
	assert.Equal(t, "Cora", view.Creator.Name)
	assert.Equal(t, 1, view.ParticipantCount, "creator auto-joins")
	assert.False(t, view.IsFull)
	assert.True(t, view.IsActive)
	require.NotNil(t, view.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), *view.ExpiresAt, time.Minute)
}

func TestCreateSessionRequiresName(t *testing.T) {
	svc, repo := newGroupFixture(t)
	creator := repo.addUser(t, "sp_creator", "Cora")

	_, err := svc.Create(context.Background(), creator, CreateParams{})
	assert.Equal(t, apperr.CodeMissingInput, errCode(t, err))
}

func TestGetSessionNotFound(t *testing.T) {
	svc, _ := newGroupFixture(t)

	_, err := svc.Get(context.Background(), "NOPE00")
	assert.Equal(t, apperr.CodeNotFound, errCode(t, err))
}

func TestGetExpiredSession(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")

	hours := 1
	view, err := svc.Create(ctx, creator, CreateParams{Name: "Short", DurationHours: &hours})
	require.NoError(t, err)

	// Force the expiry into the past.
	expired := time.Now().Add(-time.Minute)
	repo.sessions[view.ID].ExpiresAt = &expired

	_, err = svc.Get(ctx, view.SessionCode)
	assert.Equal(t, apperr.CodeNotFound, errCode(t, err))
}

func TestJoinCreatesUserOnFirstSight(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")

	view, err := svc.Create(ctx, creator, CreateParams{Name: "Party"})
	require.NoError(t, err)

	joined, err := svc.Join(ctx, view.SessionCode, "sp_new", "Nina")
	require.NoError(t, err)
	assert.Equal(t, 2, joined.ParticipantCount)

	user, err := repo.GetBySpotifyID(ctx, "sp_new")
	require.NoError(t, err)
	assert.Equal(t, "Nina", user.DisplayName)
}

func TestJoinRequiresIdentity(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")
	view, err := svc.Create(ctx, creator, CreateParams{Name: "Party"})
	require.NoError(t, err)

	_, err = svc.Join(ctx, view.SessionCode, "", "Nina")
	assert.Equal(t, apperr.CodeMissingInput, errCode(t, err))
	_, err = svc.Join(ctx, view.SessionCode, "sp_x", "")
	assert.Equal(t, apperr.CodeMissingInput, errCode(t, err))
}

func TestJoinFullSession(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")

	view, err := svc.Create(ctx, creator, CreateParams{
		Name:            "Duo",
		MaxParticipants: intPtr(2),
	})
	require.NoError(t, err)

	// Creator occupies one slot; the second join fills the session.
	second, err := svc.Join(ctx, view.SessionCode, "sp_2", "Ben")
	require.NoError(t, err)
	assert.True(t, second.IsFull)

	_, err = svc.Join(ctx, view.SessionCode, "sp_3", "Cat")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, errCode(t, err))
	assert.Contains(t, err.(*apperr.Error).Message, "session is full")

	count, err := repo.ActiveParticipantCount(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "rejected join must not change the count")
}

func TestLeaveAndRejoinReactivates(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")

	view, err := svc.Create(ctx, creator, CreateParams{Name: "Party"})
	require.NoError(t, err)

	joined, err := svc.Join(ctx, view.SessionCode, "sp_2", "Ben")
	require.NoError(t, err)
	assert.Equal(t, 2, joined.ParticipantCount)

	ben, err := repo.GetBySpotifyID(ctx, "sp_2")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, view.SessionCode, ben.ID))
	users, err := svc.Users(ctx, view.SessionCode)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// Soft leave keeps the row; rejoining flips it back.
	rejoined, err := svc.Join(ctx, view.SessionCode, "sp_2", "Ben")
	require.NoError(t, err)
	assert.Equal(t, 2, rejoined.ParticipantCount)
}

func TestLeaveNotParticipant(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")
	stranger := repo.addUser(t, "sp_stranger", "Sam")

	view, err := svc.Create(ctx, creator, CreateParams{Name: "Party"})
	require.NoError(t, err)

	err = svc.Leave(ctx, view.SessionCode, stranger)
	assert.Equal(t, apperr.CodeNotFound, errCode(t, err))
}

func TestEndCreatorOnly(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")

	view, err := svc.Create(ctx, creator, CreateParams{Name: "Party"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, view.SessionCode, "sp_2", "Ben")
	require.NoError(t, err)
	ben, err := repo.GetBySpotifyID(ctx, "sp_2")
	require.NoError(t, err)

	err = svc.End(ctx, view.SessionCode, ben.ID)
	assert.Equal(t, apperr.CodeForbidden, errCode(t, err))

	require.NoError(t, svc.End(ctx, view.SessionCode, creator))

	_, err = svc.Get(ctx, view.SessionCode)
	assert.Equal(t, apperr.CodeNotFound, errCode(t, err))
}

func TestSyncPlaybackParticipantOnly(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")
	stranger := repo.addUser(t, "sp_stranger", "Sam")

	view, err := svc.Create(ctx, creator, CreateParams{Name: "Party"})
	require.NoError(t, err)

	playing := true
	position := 42000
	sync := PlaybackSync{
		CurrentTrack:  json.RawMessage(`{"id":"t1"}`),
		PlaybackState: json.RawMessage(`{"device":"phone"}`),
		PositionMS:    &position,
		IsPlaying:     &playing,
	}

	_, err = svc.SyncPlayback(ctx, view.SessionCode, stranger, sync)
	assert.Equal(t, apperr.CodeForbidden, errCode(t, err))

	result, err := svc.SyncPlayback(ctx, view.SessionCode, creator, sync)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1"}`, string(result.CurrentTrack))
	assert.JSONEq(t, `{"device":"phone"}`, string(repo.sessions[view.ID].CurrentTrack))

	var stored map[string]any
	require.NoError(t, json.Unmarshal(result.SyncData, &stored))
	assert.Equal(t, float64(42000), stored["position_ms"])
	assert.Equal(t, true, stored["is_playing"])
}

func TestListActiveForUser(t *testing.T) {
	svc, repo := newGroupFixture(t)
	ctx := context.Background()
	creator := repo.addUser(t, "sp_creator", "Cora")
	other := repo.addUser(t, "sp_other", "Omar")

	mine, err := svc.Create(ctx, creator, CreateParams{Name: "Mine"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, CreateParams{Name: "Theirs"})
	require.NoError(t, err)

	views, err := svc.List(ctx, creator)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, mine.SessionCode, views[0].SessionCode)
}
