package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
)

func TestEncodeDecodeAccess(t *testing.T) {
	c := NewCodec("test-secret", time.Hour, 30*time.Minute)

	tok, err := c.EncodeAccess("user-1", entity.RoleNurse)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.True(t, tok.Expires.After(tok.Issued))

	res := c.Decode(tok.Value)
	require.Equal(t, Valid, res.Status)
	assert.Equal(t, "user-1", res.Claims.UserID)
	assert.Equal(t, entity.RoleNurse, res.Claims.Role)
	assert.Equal(t, PurposeAccess, res.Claims.Purpose)
	assert.WithinDuration(t, tok.Issued, res.Claims.IssuedAt, time.Second)
}

func TestEncodeDecodeReset(t *testing.T) {
	c := NewCodec("test-secret", time.Hour, 30*time.Minute)

	tok, err := c.EncodeReset("user-2")
	require.NoError(t, err)

	res := c.Decode(tok.Value)
	require.Equal(t, Valid, res.Status)
	assert.Equal(t, "user-2", res.Claims.UserID)
	assert.Equal(t, PurposeReset, res.Claims.Purpose)
	assert.Empty(t, res.Claims.Role)
}

func TestDecodeExpired(t *testing.T) {
	c := NewCodec("test-secret", -time.Minute, -time.Minute)

	tok, err := c.EncodeAccess("user-3", entity.RoleCHW)
	require.NoError(t, err)

	res := c.Decode(tok.Value)
	assert.Equal(t, Expired, res.Status)
	assert.Empty(t, res.Claims.UserID)
}

func TestDecodeBadSignature(t *testing.T) {
	issuer := NewCodec("secret-a", time.Hour, time.Hour)
	verifier := NewCodec("secret-b", time.Hour, time.Hour)

	tok, err := issuer.EncodeAccess("user-4", entity.RoleAdministrator)
	require.NoError(t, err)

	res := verifier.Decode(tok.Value)
	assert.Equal(t, BadSignature, res.Status)
}

func TestDecodeMalformed(t *testing.T) {
	c := NewCodec("test-secret", time.Hour, 30*time.Minute)

	for _, tokenStr := range []string{"", "garbage", "a.b.c"} {
		res := c.Decode(tokenStr)
		assert.Equal(t, Malformed, res.Status, "token %q", tokenStr)
	}
}

func TestDecodeMissingPurpose(t *testing.T) {
	// A structurally valid token signed with the right secret but without a
	// purpose claim must not decode as Valid.
	c := NewCodec("test-secret", time.Hour, 30*time.Minute)

	tok, err := c.encode("user-5", string(entity.RoleNurse), "", time.Hour)
	require.NoError(t, err)

	res := c.Decode(tok.Value)
	assert.Equal(t, Malformed, res.Status)
}
