package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	proxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domus_proxy_requests_total",
		Help: "Requests served by domus-proxy by route and status",
	}, []string{"route", "status"})

	proxyRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domus_proxy_request_duration_seconds",
		Help:    "domus-proxy request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// route returns the matched route pattern so path parameters do not
// explode label cardinality.
func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= 500 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		r := route(c)
		proxyRequestsTotal.WithLabelValues(r, strconv.Itoa(c.Writer.Status())).Inc()
		proxyRequestDuration.WithLabelValues(r).Observe(time.Since(start).Seconds())
	}
}
