package domain

import "time"

// Credential is a signed bearer token together with the claims it carries.
type Credential struct {
	Token     string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// MaxAge is the credential's validity window.
func (c *Credential) MaxAge() time.Duration {
	return c.ExpiresAt.Sub(c.IssuedAt)
}
