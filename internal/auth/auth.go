package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pulsepoll/pulsepoll/internal/entity"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFieldsRequired     = errors.New("all fields are required")
	ErrNotLoggedIn        = errors.New("no user is logged in")
)

type UserStorage interface {
	CurrentUser() (entity.User, error)
	SaveCurrentUser(user entity.User) error
	DeleteCurrentUser() error
}

// Service is a mock identity lookup: any non-blank credentials produce a
// device-local user record. There is no verification and no security here;
// the rest of the system only needs a stable identity token.
type Service struct {
	log   *slog.Logger
	users UserStorage
	now   func() time.Time
}

func NewService(log *slog.Logger, users UserStorage) *Service {
	return &Service{
		log:   log,
		users: users,
		now:   time.Now,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (entity.User, error) {
	const op = "auth.Login"

	if email == "" || password == "" {
		return entity.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	name, _, _ := strings.Cut(email, "@")
	now := s.now()
	user := entity.User{
		ID:       now.UnixMilli(),
		Email:    email,
		Name:     name,
		Avatar:   avatarURL(email),
		JoinDate: now,
	}

	if err := s.users.SaveCurrentUser(user); err != nil {
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user logged in", slog.String("op", op), slog.String("name", user.Name))
	return user, nil
}

func (s *Service) Register(ctx context.Context, email, password, name string) (entity.User, error) {
	const op = "auth.Register"

	if email == "" || password == "" || name == "" {
		return entity.User{}, fmt.Errorf("%s: %w", op, ErrFieldsRequired)
	}

	now := s.now()
	user := entity.User{
		ID:       now.UnixMilli(),
		Email:    email,
		Name:     name,
		Avatar:   avatarURL(email),
		JoinDate: now,
	}

	if err := s.users.SaveCurrentUser(user); err != nil {
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", slog.String("op", op), slog.String("name", user.Name))
	return user, nil
}

// Current returns the logged-in user, if any.
func (s *Service) Current(ctx context.Context) (entity.User, error) {
	const op = "auth.Current"

	user, err := s.users.CurrentUser()
	if err != nil {
		return entity.User{}, fmt.Errorf("%s: %w", op, ErrNotLoggedIn)
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context) error {
	const op = "auth.Logout"

	if err := s.users.DeleteCurrentUser(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GuestIdentity mints an identity token for a participant who never logged
// in; their vote records live under it for the life of the device store.
func GuestIdentity() string {
	return "guest-" + uuid.NewString()
}

func avatarURL(email string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(email)
}
