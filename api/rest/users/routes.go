package users

import (
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"github.com/gin-gonic/gin"
)

// registers the admin user management routes
func RegisterRoutes(rg *gin.RouterGroup, store *devstore.Store, protect gin.HandlerFunc) {
	users := rg.Group("/users")
	users.Use(protect, auth.AdminOnly())

	users.GET("", ListHandler(store))
	users.GET("/stats", StatsHandler(store))
	users.GET("/:id", GetHandler(store))
	users.PUT("/:id", UpdateHandler(store))
	users.DELETE("/:id", DeleteHandler(store))
}
