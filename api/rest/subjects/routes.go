package subjects

import (
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, store *devstore.Store, protect gin.HandlerFunc) {
	subjects := rg.Group("/subjects")
	subjects.Use(protect)

	subjects.GET("", ListHandler(store))
	subjects.GET("/grouped", GroupedHandler(store))
	subjects.GET("/filter", FilterHandler(store))
	subjects.GET("/:id", GetHandler(store))

	subjects.POST("", auth.AdminOnly(), CreateHandler(store))
	subjects.DELETE("/:id", auth.AdminOnly(), DeleteHandler(store))
}
