package auth

import (
	"codeberg.org/pyqpapers/portal/internal/auth"
	"github.com/gin-gonic/gin"
)

// registers all authentication routes; limit guards the credential exchanges
func RegisterRoutes(router *gin.RouterGroup, deps Deps, limit gin.HandlerFunc) {
	protect := auth.Middleware(deps.Issuer, deps.Store)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limit, RegisterHandler(deps))
		authGroup.POST("/login", limit, LoginHandler(deps))
		authGroup.POST("/google", limit, GoogleHandler(deps))
		authGroup.GET("/refresh", limit, RefreshHandler(deps))

		authGroup.GET("/me", protect, GetCurrentUserHandler(deps))
		authGroup.PUT("/profile", protect, UpdateProfileHandler(deps))
		authGroup.PUT("/updatepassword", protect, UpdatePasswordHandler(deps))
		authGroup.POST("/logout", protect, LogoutHandler(deps))
	}
}
