package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-otp-auth/internal/domain"
)

// UserRepo is a process-local user store. It enforces the same uniqueness
// rules as the DynamoDB repo and is used for local runs and tests.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // email -> userID
	byCode  map[string]string // pending verification code -> userID
	now     func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
		byCode:  make(map[string]string),
		now:     time.Now,
	}
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepo) FindByCode(ctx context.Context, code string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, fmt.Errorf("verification code: %w", domain.ErrNotFound)
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[userID]
	if !ok {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	if u.UserID == "" {
		return fmt.Errorf("insert user: empty user id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if _, exists := r.byID[u.UserID]; exists {
		return fmt.Errorf("user id already exists: %w", domain.ErrConflict)
	}
	if u.VerificationCode != "" {
		if _, taken := r.byCode[u.VerificationCode]; taken {
			return domain.ErrCodeTaken
		}
		r.byCode[u.VerificationCode] = u.UserID
	}
	r.byID[u.UserID] = *u
	r.byEmail[u.Email] = u.UserID
	return nil
}

// UpdateVerification sets the verified flag and optionally releases the
// pending code. Clearing a code that is already gone reports ErrNotFound so
// a code can be redeemed at most once.
func (r *UserRepo) UpdateVerification(ctx context.Context, userID string, verified, clearCode bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if u.Verified && !verified {
		return fmt.Errorf("verified account cannot be reverted: %w", domain.ErrConflict)
	}
	if clearCode {
		if u.VerificationCode == "" {
			return fmt.Errorf("verification code: %w", domain.ErrNotFound)
		}
		delete(r.byCode, u.VerificationCode)
		u.VerificationCode = ""
	}
	u.Verified = verified
	u.UpdatedAt = r.now().UTC()
	r.byID[userID] = u
	return nil
}
