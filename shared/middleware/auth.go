package middleware

import (
	"strings"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Authenticator resolves a raw bearer token to the caller.
type Authenticator interface {
	Authenticate(token string) (auth.Principal, error)
}

// Authorize is the single route policy: a request without a valid token is
// rejected with 401, a valid token of the wrong role with 403.
func Authorize(tokens Authenticator, required auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			RespondWithAppError(c, err)
			c.Abort()
			return
		}

		principal, err := tokens.Authenticate(token)
		if err != nil {
			RespondWithAppError(c, err)
			c.Abort()
			return
		}

		if principal.Role != required {
			RespondWithAppError(c, apperr.New(apperr.KindForbidden, "%s access required", required))
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.New(apperr.KindUnauthorized, "Authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.New(apperr.KindUnauthorized, "Invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFrom returns the caller stored by Authorize.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// SetPrincipal stores p as the caller. Used by tests and trusted internal hops.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
}
