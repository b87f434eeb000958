package auth

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

type Service struct {
	Users  UserStore
	Tokens *TokenIssuer
}

func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.Users.CreateUser(ctx, User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
}

// Login: email/password salah dua-duanya dibalas ErrInvalidCredentials,
// jangan bocorkan yang mana yang salah.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if err == ErrUserNotFound {
			return "", User{}, ErrInvalidCredentials
		}
		return "", User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", User{}, ErrInvalidCredentials
	}
	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return "", User{}, err
	}
	return token, u, nil
}
