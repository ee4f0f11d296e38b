package rest

import (
	"strconv"
	"time"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// per-IP limiter for the credential exchanges
func authRateLimiter(formatted string) (gin.HandlerFunc, error) {
	if formatted == "" {
		formatted = DefaultAuthRate
	}

	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(memory.NewStore(), rate)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			apperrors.TooManyRequests(c, "Too many attempts, please try again later")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			apperrors.InternalError(c, "rate limiter failed", err)
			c.Abort()
		}),
	), nil
}

// access log through the structured logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

func requestMetrics(reg prometheus.Registerer) gin.HandlerFunc {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyq_devserver_requests_total",
			Help: "Requests handled by the development backend, by route and status",
		},
		[]string{"method", "route", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pyq_devserver_request_duration_seconds",
			Help:    "Handling time of development backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	reg.MustRegister(requests, duration)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
