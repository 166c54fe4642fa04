package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/flowoff/assistente/internal/auth"
	"github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxSubjectKey = "subject"
)

// Auth requires a valid bearer token carrying every scope in required, or the admin
// scope when none is given. Failures follow RFC 6750: 401 with invalid_token for bad
// tokens and 403 with insufficient_scope for missing scopes.
func Auth(jwt *iauth.JWTService, required ...string) gin.HandlerFunc {
	if len(required) == 0 {
		required = []string{iauth.ScopeAdmin}
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			deny(c, "Bearer", errors.ErrUnauthorized)
			return
		}

		claims, err := jwt.Verify(token)
		if err != nil {
			deny(c, `Bearer error="invalid_token"`, errors.ErrUnauthorized)
			return
		}

		for _, scope := range required {
			if !claims.HasScope(scope) {
				deny(c, `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`, errors.ErrForbidden)
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxSubjectKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func deny(c *gin.Context, challenge string, err error) {
	c.Header("WWW-Authenticate", challenge)
	response.Error(c, err)
	c.Abort()
}
