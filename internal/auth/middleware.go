package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campustrack/internal/access"
	"campustrack/internal/metrics"
	"campustrack/internal/model"
)

const identityKey = "identity"

// Bearer enforces bearer JWT tokens signed with HS256 and stores the caller
// identity in the request context.
func Bearer(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			metrics.AuthFailures.Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			metrics.AuthFailures.Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

// RequireRoles aborts with 403 unless the caller holds one of the roles.
// Must run after Bearer.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if err := access.RequireRoles(id, roles...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity set by Bearer.
func IdentityFrom(c *gin.Context) access.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(access.Identity)
	return id
}
