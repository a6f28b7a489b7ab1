package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/savannahealth/mamatoto/pkg/response"
	"github.com/savannahealth/mamatoto/pkg/session"
)

const (
	// CtxClaimsKey holds the decoded session.Claims for the request.
	CtxClaimsKey = "sessionClaims"
	// CtxTokenKey holds the raw bearer token string.
	CtxTokenKey = "sessionToken"
)

// RequireSession validates the Authorization bearer token and stores the
// decoded claims plus the raw token in the Gin context. Any token that
// does not decode Valid is rejected with the decode status as a
// diagnostic code. Deliberately does not call c.Next so it can be
// composed by RequireAccess.
func RequireSession(codec *session.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.AbortError(c, http.StatusUnauthorized, "Invalid access token", nil)
			return
		}
		res := codec.Decode(raw)
		if res.Status != session.Valid {
			response.AbortError(c, http.StatusUnauthorized, "Invalid access token",
				gin.H{"code": string(res.Status)})
			return
		}
		c.Set(CtxClaimsKey, res.Claims)
		c.Set(CtxTokenKey, raw)
	}
}

// RequireAccess additionally rejects reset-scoped tokens, which are only
// usable to complete a password reset.
func RequireAccess(codec *session.Codec) gin.HandlerFunc {
	require := RequireSession(codec)
	return func(c *gin.Context) {
		require(c)
		if c.IsAborted() {
			return
		}
		claims, _ := SessionClaims(c)
		if claims.Purpose != session.PurposeAccess {
			response.AbortError(c, http.StatusUnauthorized, "Invalid access token",
				gin.H{"code": "wrong-purpose"})
		}
	}
}

// SessionClaims returns the claims stored by RequireSession.
func SessionClaims(c *gin.Context) (session.Claims, bool) {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return session.Claims{}, false
	}
	claims, ok := v.(session.Claims)
	return claims, ok
}

// BearerToken returns the raw bearer token stored by RequireSession.
func BearerToken(c *gin.Context) string {
	return c.GetString(CtxTokenKey)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
