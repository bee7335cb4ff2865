package domain

import (
	"strings"
	"time"
)

// User is the account record shared by registration, verification and login.
type User struct {
	UserID           string    `json:"id" dynamodbav:"user_id"`
	Email            string    `json:"email" dynamodbav:"email"`
	PasswordHash     string    `json:"-" dynamodbav:"password_hash"`
	VerificationCode string    `json:"-" dynamodbav:"verification_code,omitempty"`
	Verified         bool      `json:"verified" dynamodbav:"is_verified"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type VerifyRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
