// Package session turns a small claim set into a signed, time-limited
// opaque token and back. Decoding never fails with an error; outcomes are
// reported as a tagged Result so callers can branch on token validity
// without error handling.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
)

// Purpose restricts what a token may be used for.
type Purpose string

const (
	// PurposeAccess marks a normal authenticated session.
	PurposeAccess Purpose = "access"
	// PurposeReset marks a token usable only to complete a password reset.
	PurposeReset Purpose = "reset"
)

// Status is the tagged outcome of decoding a token.
type Status string

const (
	Valid        Status = "valid"
	Expired      Status = "expired"
	Malformed    Status = "malformed"
	BadSignature Status = "bad-signature"
)

// Claims are the facts embedded in a session token. Role is only set for
// access tokens.
type Claims struct {
	UserID   string
	Role     entity.Role
	Purpose  Purpose
	IssuedAt time.Time
}

// Result is the outcome of Decode. Claims is populated iff Status is Valid.
type Result struct {
	Status Status
	Claims Claims
}

// Token is an encoded session token together with its validity window.
type Token struct {
	Value   string
	Issued  time.Time
	Expires time.Time
}

// Codec signs and verifies session tokens with a single symmetric secret.
// Access and reset tokens carry their own validity windows.
type Codec struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
}

func NewCodec(secret string, accessTTL, resetTTL time.Duration) *Codec {
	return &Codec{secret: []byte(secret), accessTTL: accessTTL, resetTTL: resetTTL}
}

type tokenClaims struct {
	UserID  string `json:"uid"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// EncodeAccess issues a token for a normal authenticated session.
func (c *Codec) EncodeAccess(userID string, role entity.Role) (Token, error) {
	return c.encode(userID, string(role), PurposeAccess, c.accessTTL)
}

// EncodeReset issues a token restricted to the password-reset-completion
// operation.
func (c *Codec) EncodeReset(userID string) (Token, error) {
	return c.encode(userID, "", PurposeReset, c.resetTTL)
}

func (c *Codec) encode(userID, role string, purpose Purpose, ttl time.Duration) (Token, error) {
	issued := time.Now()
	expires := issued.Add(ttl)
	claims := &tokenClaims{
		UserID:  userID,
		Role:    role,
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(c.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: s, Issued: issued, Expires: expires}, nil
}

// Decode verifies signature and expiry. A token decodes Valid iff it was
// produced by this codec's secret and has not passed its expiry.
func (c *Codec) Decode(tokenStr string) Result {
	claims := &tokenClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Result{Status: Expired}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Result{Status: BadSignature}
	case err != nil:
		return Result{Status: Malformed}
	case !tkn.Valid:
		return Result{Status: Malformed}
	}

	purpose := Purpose(claims.Purpose)
	if purpose != PurposeAccess && purpose != PurposeReset {
		return Result{Status: Malformed}
	}
	out := Claims{
		UserID:  claims.UserID,
		Role:    entity.Role(claims.Role),
		Purpose: purpose,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return Result{Status: Valid, Claims: out}
}
