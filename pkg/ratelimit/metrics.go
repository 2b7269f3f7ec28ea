package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cooldownsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domus_cooldowns_started_total",
		Help: "Total number of provider cooldowns started by 429/503 responses",
	}, []string{"host", "status"})

	cooldownBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domus_cooldown_blocks_total",
		Help: "Total number of requests refused because the host is cooling down",
	}, []string{"host"})

	cooldownSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "domus_cooldown_seconds",
		Help: "Length of the most recent cooldown per host",
	}, []string{"host"})

	limiterWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domus_rate_limiter_wait_seconds",
		Help:    "Time spent waiting for a per-host rate limiter token",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"host"})
)
