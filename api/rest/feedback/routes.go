package feedback

import (
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, store *devstore.Store, protect gin.HandlerFunc) {
	feedback := rg.Group("/feedback")
	feedback.Use(protect)

	feedback.POST("", SubmitHandler(store))
	feedback.GET("/me", MineHandler(store))
	feedback.GET("/paper/:id", PaperHandler(store))

	feedback.GET("", auth.AdminOnly(), ListHandler(store))
	feedback.PUT("/:id", auth.AdminOnly(), UpdateStatusHandler(store))
	feedback.DELETE("/:id", auth.AdminOnly(), DeleteHandler(store))
}
