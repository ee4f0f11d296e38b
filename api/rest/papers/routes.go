package papers

import (
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, store *devstore.Store, protect gin.HandlerFunc) {
	papers := rg.Group("/papers")
	papers.Use(protect)

	papers.GET("", ListHandler(store))
	papers.GET("/search", SearchHandler(store))
	papers.GET("/stats/overview", auth.AdminOnly(), StatsHandler(store))
	papers.GET("/:id", GetHandler(store))
	papers.PUT("/:id/download", DownloadHandler(store))

	papers.POST("", auth.AdminOnly(), CreateHandler(store))
	papers.PUT("/:id", auth.AdminOnly(), UpdateHandler(store))
	papers.DELETE("/:id", auth.AdminOnly(), DeleteHandler(store))
}

// serves stored PDFs at the URLs papers report in fileUrl
func RegisterFileRoutes(router gin.IRouter, store *devstore.Store) {
	router.GET("/uploads/:file", FileHandler(store))
}
