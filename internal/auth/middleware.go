package auth

import (
	"errors"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"github.com/gin-gonic/gin"
)

// validates bearer tokens against the issuer and the live account state
func Middleware(issuer *Issuer, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apperrors.Unauthorized(c, "Not authorized to access this route")
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			apperrors.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := issuer.Validate(token)
		if err != nil {
			apperrors.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		acct, err := accounts.Account(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrUnknownAccount) {
				apperrors.Unauthorized(c, "account no longer exists")
			} else {
				apperrors.InternalError(c, "failed to load account", err)
			}
			c.Abort()
			return
		}

		if acct.TokenVersion != claims.Version {
			apperrors.Unauthorized(c, "token has been revoked")
			c.Abort()
			return
		}

		if acct.Blocked {
			apperrors.Forbidden(c, "account is blocked")
			c.Abort()
			return
		}

		c.Set(ctxUserID, acct.ID)
		c.Set(ctxEmail, acct.Email)
		c.Set(ctxIsAdmin, acct.IsAdmin)

		c.Next()
	}
}

// rejects non-admins; must run after Middleware
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			apperrors.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// extracts user_id from context after Middleware
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	return id, ok
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}
