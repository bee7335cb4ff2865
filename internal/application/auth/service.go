package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/pkg/id"
	"github.com/go-otp-auth/internal/pkg/otp"
	"github.com/go-otp-auth/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// maxCodeAttempts bounds how often registration redraws a colliding code.
const maxCodeAttempts = 5

const verificationSubject = "Verify your account"

// RegisteredMessage is the confirmation returned after a successful registration.
const RegisteredMessage = "User registered successfully. Please check your email for OTP."

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Verify(ctx context.Context, req domain.VerifyRequest) (*domain.Credential, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Credential, error)
}

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByCode(ctx context.Context, code string) (*domain.User, error)
	Insert(ctx context.Context, u *domain.User) error
	UpdateVerification(ctx context.Context, userID string, verified, clearCode bool) error
}

type notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type credentialIssuer interface {
	Issue(subject string) (*domain.Credential, error)
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type service struct {
	users                userStore
	notifier             notifier
	credentials          credentialIssuer
	hasher               passwordHasher
	random               io.Reader
	now                  func() time.Time
	requireVerifiedLogin bool
}

type ServiceDeps struct {
	UserRepo    userStore
	Notifier    notifier
	Credentials credentialIssuer
	Hasher      passwordHasher
	// Random feeds code and id generation; nil means crypto/rand.
	Random io.Reader
	// Now defaults to time.Now.
	Now func() time.Time
	// RequireVerifiedLogin refuses credentials to accounts that have not
	// completed OTP verification.
	RequireVerifiedLogin bool
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:                deps.UserRepo,
		notifier:             deps.Notifier,
		credentials:          deps.Credentials,
		hasher:               deps.Hasher,
		random:               deps.Random,
		now:                  deps.Now,
		requireVerifiedLogin: deps.RequireVerifiedLogin,
	}
	if s.random == nil {
		s.random = rand.Reader
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	// Advisory only: the store enforces email uniqueness on insert.
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, internal("look up user", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("password exceeds 72 bytes: %w", domain.ErrBadRequest)
	}
	if err != nil {
		return nil, internal("hash password", err)
	}

	now := s.now().UTC()
	userID, err := id.At(now, s.random)
	if err != nil {
		return nil, internal("generate user id", err)
	}
	u := &domain.User{
		UserID:       userID,
		Email:        req.Email,
		PasswordHash: hash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.insertWithFreshCode(ctx, u); err != nil {
		return nil, err
	}

	if err := s.notifier.Send(ctx, u.Email, verificationSubject, "Your OTP is: "+u.VerificationCode); err != nil {
		return nil, internal("deliver verification code", err, "user_id", u.UserID)
	}
	return u, nil
}

func (s *service) insertWithFreshCode(ctx context.Context, u *domain.User) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := otp.Generate(s.random)
		if err != nil {
			return internal("generate verification code", err)
		}
		u.VerificationCode = code
		err = s.users.Insert(ctx, u)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrCodeTaken):
			slog.Debug("verification code collision, redrawing", "attempt", attempt)
			continue
		case errors.Is(err, domain.ErrConflict):
			return fmt.Errorf("user already exists: %w", domain.ErrConflict)
		default:
			return internal("insert user", err)
		}
	}
	return internal("insert user", fmt.Errorf("no free verification code after %d attempts", maxCodeAttempts))
}

func (s *service) Verify(ctx context.Context, req domain.VerifyRequest) (*domain.Credential, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.users.FindByCode(ctx, req.OTP)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}
	if err != nil {
		return nil, internal("look up verification code", err)
	}

	err = s.users.UpdateVerification(ctx, u.UserID, true, true)
	if errors.Is(err, domain.ErrNotFound) {
		// Consumed by a concurrent request between lookup and update.
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}
	if err != nil {
		return nil, internal("mark user verified", err, "user_id", u.UserID)
	}

	cred, err := s.credentials.Issue(u.UserID)
	if err != nil {
		return nil, internal("issue credential", err, "user_id", u.UserID)
	}
	slog.Info("user verified", "user_id", u.UserID)
	return cred, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Credential, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, internal("look up user", err)
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return nil, fmt.Errorf("invalid password: %w", domain.ErrUnauthorized)
	}
	if s.requireVerifiedLogin && !u.Verified {
		return nil, fmt.Errorf("account not verified: %w", domain.ErrForbidden)
	}

	cred, err := s.credentials.Issue(u.UserID)
	if err != nil {
		return nil, internal("issue credential", err, "user_id", u.UserID)
	}
	return cred, nil
}

// internal logs the underlying failure and returns an error that only
// exposes domain.ErrInternal to callers.
func internal(op string, err error, attrs ...any) error {
	slog.Error(op+" failed", append(attrs, "err", err)...)
	return fmt.Errorf("%s: %w", op, domain.ErrInternal)
}
