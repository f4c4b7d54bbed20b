package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fin-control/fin-control/internal/shared"
)

type memoryAuthRepo struct {
	users    map[string]*User
	sessions map[string]int64
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{users: make(map[string]*User), sessions: make(map[string]int64)}
}

func (r *memoryAuthRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryAuthRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = userID
	return nil
}

func (r *memoryAuthRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryAuthRepo()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	repo.users["ana@example.com"] = &User{ID: 7, Email: "ana@example.com", PasswordHash: hash, IsActive: true}
	repo.users["off@example.com"] = &User{ID: 8, Email: "off@example.com", PasswordHash: hash, IsActive: false}

	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)

	_, err = svc.Authenticate(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "off@example.com", "s3cret")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "ghost@example.com", "s3cret")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
