// Package rest assembles the development backend's HTTP surface.
package rest

import (
	"time"

	authroutes "codeberg.org/pyqpapers/portal/api/rest/auth"
	"codeberg.org/pyqpapers/portal/api/rest/feedback"
	"codeberg.org/pyqpapers/portal/api/rest/health"
	"codeberg.org/pyqpapers/portal/api/rest/papers"
	"codeberg.org/pyqpapers/portal/api/rest/subjects"
	"codeberg.org/pyqpapers/portal/api/rest/users"
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// default per-IP budget of the credential exchange routes
const DefaultAuthRate = "30-M"

type Options struct {
	Store   *devstore.Store
	Issuer  *auth.Issuer
	Refresh *auth.RefreshStore
	Google  auth.GoogleVerifier

	CORSOrigins []string

	// ulule formatted rate, e.g. "30-M"; empty uses DefaultAuthRate
	AuthRate string

	// metrics are registered here and served on /metrics; nil disables both
	Registry *prometheus.Registry
}

// builds the gin engine with every route under /api
func NewRouter(opts Options) (*gin.Engine, error) {
	limit, err := authRateLimiter(opts.AuthRate)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	if opts.Registry != nil {
		router.Use(requestMetrics(opts.Registry))
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	router.GET("/health", health.Handler)
	papers.RegisterFileRoutes(router, opts.Store)

	protect := auth.Middleware(opts.Issuer, opts.Store)

	api := router.Group("/api")
	{
		api.GET("/ping", health.PingHandler)

		authroutes.RegisterRoutes(api, authroutes.Deps{
			Store:   opts.Store,
			Issuer:  opts.Issuer,
			Refresh: opts.Refresh,
			Google:  opts.Google,
		}, limit)
		papers.RegisterRoutes(api, opts.Store, protect)
		subjects.RegisterRoutes(api, opts.Store, protect)
		users.RegisterRoutes(api, opts.Store, protect)
		feedback.RegisterRoutes(api, opts.Store, protect)
	}

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

