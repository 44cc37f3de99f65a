package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/pulsepoll/pulsepoll/internal/repo"
	"github.com/pulsepoll/pulsepoll/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewService(log, repo.New(memory.New()))
	s.now = func() time.Time {
		return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	return s
}

func TestService_Login_Success(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	email := gofakeit.Email()
	user, err := s.Login(ctx, email, gofakeit.Password(true, true, true, false, false, 10))
	require.NoError(t, err)

	assert.Equal(t, email, user.Email)
	name, _, _ := strings.Cut(email, "@")
	assert.Equal(t, name, user.Name)
	assert.Contains(t, user.Avatar, "dicebear")
	assert.NotZero(t, user.ID)

	current, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, current)
}

func TestService_Login_BlankCredentials(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, gofakeit.Email(), "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Register_RequiresAllFields(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, gofakeit.Email(), "secret", "")
	assert.ErrorIs(t, err, ErrFieldsRequired)

	user, err := s.Register(ctx, gofakeit.Email(), "secret", "Sam")
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.Name)
}

func TestService_Logout(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, gofakeit.Email(), "secret")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))

	_, err = s.Current(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestService_Current_NoUser(t *testing.T) {
	s := newTestService(t)

	_, err := s.Current(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGuestIdentity(t *testing.T) {
	first := GuestIdentity()
	second := GuestIdentity()

	assert.True(t, strings.HasPrefix(first, "guest-"))
	assert.NotEqual(t, first, second)
}
