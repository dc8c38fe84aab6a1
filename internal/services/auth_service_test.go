package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) Update(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

type fakeSessions struct {
	sessions map[string]*models.APISession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*models.APISession)}
}

func (f *fakeSessions) Create(ctx context.Context, session *models.APISession) error {
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessions) GetByID(ctx context.Context, id string) (*models.APISession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeSessions) {
	t.Helper()
	sessions := newFakeSessions()
	return NewAuthService(newFakeUsers(), sessions, "test-secret", time.Hour), sessions
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	service, _ := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "rep@debriefhub.example", "Dana", "correct-horse-1"))

	resp, err := service.Login(ctx, "rep@debriefhub.example", "correct-horse-1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := service.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
}

func TestAuth_DuplicateEmail(t *testing.T) {
	service, _ := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "rep@debriefhub.example", "Dana", "correct-horse-1"))
	err := service.Register(ctx, "rep@debriefhub.example", "Other", "different-pass-2")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuth_WrongPassword(t *testing.T) {
	service, _ := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "rep@debriefhub.example", "Dana", "correct-horse-1"))

	_, err := service.Login(ctx, "rep@debriefhub.example", "wrong-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, "nobody@debriefhub.example", "correct-horse-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_LogoutRevokesSession(t *testing.T) {
	service, sessions := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, service.Register(ctx, "rep@debriefhub.example", "Dana", "correct-horse-1"))
	resp, err := service.Login(ctx, "rep@debriefhub.example", "correct-horse-1")
	require.NoError(t, err)

	_, err = service.VerifySession(ctx, resp.Token)
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, resp.Token))
	assert.Empty(t, sessions.sessions)

	// The JWT still parses, but the session behind it is gone.
	_, err = service.VerifySession(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth_InvalidToken(t *testing.T) {
	service, _ := newAuthFixture(t)

	_, err := service.VerifyToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret.
	other := NewAuthService(newFakeUsers(), newFakeSessions(), "other-secret", time.Hour)
	require.NoError(t, other.Register(context.Background(), "x@debriefhub.example", "X", "some-password-1"))
	resp, err := other.Login(context.Background(), "x@debriefhub.example", "some-password-1")
	require.NoError(t, err)

	_, err = service.VerifyToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
