package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// CredentialTTL is the validity window of every issued credential.
const CredentialTTL = time.Hour

// ErrInvalidCredential is the only error Verify returns. Malformed tokens,
// bad signatures and expired tokens are deliberately indistinguishable.
var ErrInvalidCredential = errors.New("invalid credential")

// Provider signs and verifies HS256 session credentials.
type Provider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Provider.
type Option func(*Provider)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider builds a Provider from the process configuration. A missing or
// short secret is a configuration error and must stop startup.
func NewProvider(cfg *config.Config, opts ...Option) (*Provider, error) {
	return New(cfg.JWTSecret, cfg.JWTIssuer, opts...)
}

// New builds a Provider from a raw secret and issuer.
func New(secret, issuer string, opts ...Option) (*Provider, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is not set: %w", domain.ErrConfiguration)
	}
	if len(secret) < config.MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes: %w", config.MinSecretLength, domain.ErrConfiguration)
	}
	p := &Provider{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    CredentialTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(p.now),
	)
	return p, nil
}

// Issue signs a credential for subject valid for one hour from now.
func (p *Provider) Issue(subject string) (*domain.Credential, error) {
	if subject == "" {
		return nil, errors.New("issue credential: empty subject")
	}
	now := p.now().Truncate(jwt.TimePrecision)
	exp := now.Add(p.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    p.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, errors.New("issue credential: signing failed")
	}
	return &domain.Credential{Token: signed, Subject: subject, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks the signature, issuer and expiry of token and returns its subject.
func (p *Provider) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := p.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidCredential
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidCredential
	}
	return claims.Subject, nil
}
