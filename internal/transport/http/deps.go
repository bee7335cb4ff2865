package http

import (
	"context"

	"github.com/go-otp-auth/internal/domain"
	jwtinfra "github.com/go-otp-auth/internal/infrastructure/jwt"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByCode(ctx context.Context, code string) (*domain.User, error)
	Insert(ctx context.Context, u *domain.User) error
	UpdateVerification(ctx context.Context, userID string, verified, clearCode bool) error
}

// Notifier delivers verification codes out of band.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    UserRepository
	Notifier    Notifier
	JWTProvider *jwtinfra.Provider
	Hasher      PasswordHasher
}

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
