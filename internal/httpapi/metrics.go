package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type serverMetrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	betsPlaced      prometheus.Counter
}

// Each Server carries its own registry so that multiple instances (tests,
// embedded setups) never collide on metric registration.
func newServerMetrics() *serverMetrics {
	registry := prometheus.NewRegistry()
	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betbook_http_requests_total",
		Help: "HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betbook_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	betsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betbook_bets_placed_total",
		Help: "Successfully placed bets.",
	})
	registry.MustRegister(requestsTotal, requestDuration, betsPlaced)
	return &serverMetrics{
		registry:        registry,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		betsPlaced:      betsPlaced,
	}
}

func (metrics *serverMetrics) middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		startedAt := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.requestsTotal.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		metrics.requestDuration.WithLabelValues(route).Observe(time.Since(startedAt).Seconds())
	}
}

func (metrics *serverMetrics) handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))
}
