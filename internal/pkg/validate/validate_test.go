package validate

import (
	"strings"
	"testing"

	"github.com/go-otp-auth/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(domain.RegisterRequest{Email: "a@b.com", Password: "pw"}))
	assert.NoError(t, Struct(domain.VerifyRequest{OTP: "012345"}))
}

func TestStruct_MissingFields_UsesJSONNames(t *testing.T) {
	err := Struct(domain.RegisterRequest{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "field 'email' failed 'required'")
	assert.Contains(t, err.Error(), "field 'password' failed 'required'")
}

func TestStruct_DoesNotEchoValues(t *testing.T) {
	err := Struct(domain.RegisterRequest{Email: "not-an-email", Password: "hunter2"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.NotContains(t, err.Error(), "not-an-email")
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestStruct_OTPShape(t *testing.T) {
	assert.ErrorIs(t, Struct(domain.VerifyRequest{OTP: "12345"}), domain.ErrBadRequest)
	assert.ErrorIs(t, Struct(domain.VerifyRequest{OTP: "12345a"}), domain.ErrBadRequest)
}

func TestStruct_PasswordLimitCountsBytes(t *testing.T) {
	assert.NoError(t, Struct(domain.RegisterRequest{Email: "a@b.com", Password: strings.Repeat("é", 36)}))
	err := Struct(domain.RegisterRequest{Email: "a@b.com", Password: strings.Repeat("é", 40)})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "field 'password' failed 'maxbytes'")
	assert.ErrorIs(t, Struct(domain.RegisterRequest{Email: "a@b.com", Password: strings.Repeat("a", 73)}), domain.ErrBadRequest)
}
