package auth

import (
	"context"
	"errors"
	"time"

	"bookreviews/internal/platform/crypto"
	"bookreviews/internal/user"
)

// ErrInvalidCredentials is returned when the email or password is wrong.
// Login never reveals which of the two it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the credential store consumed by the auth service.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Service struct {
	secret string
	ttl    time.Duration
	users  UserStore
}

func NewService(secret string, ttl time.Duration, users UserStore) *Service {
	return &Service{secret: secret, ttl: ttl, users: users}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (user.User, error) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return user.User{}, err
	}

	u := user.User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// Login verifies the credentials and issues a bearer token with the user id
// as subject.
func (s *Service) Login(ctx context.Context, email, password string) (string, user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !crypto.VerifyPassword(u.Password, password) {
		return "", user.User{}, ErrInvalidCredentials
	}

	token, _, err := crypto.GenerateToken(s.secret, u.ID, u.Role, s.ttl)
	if err != nil {
		return "", user.User{}, err
	}
	return token, u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (user.User, error) {
	return s.users.GetByID(ctx, id)
}
