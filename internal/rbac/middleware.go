package rbac

import (
	"net/http"

	"crm-telephony/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole admits callers holding one of allowed. Admin is always
// admitted; a role this service does not know never is.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if status := decide(role, err, allowed); status != http.StatusOK {
			msg := "forbidden"
			if status == http.StatusUnauthorized {
				msg = "role required"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Next()
	}
}

func decide(role string, err error, allowed []string) int {
	switch {
	case err != nil:
		return http.StatusUnauthorized
	case IsAdmin(role):
		return http.StatusOK
	case !Valid(role):
		return http.StatusForbidden
	}
	for _, a := range allowed {
		if a == role {
			return http.StatusOK
		}
	}
	return http.StatusForbidden
}
