// Package monitor provides Prometheus metrics for the gateway.
package monitor

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fuchsia74/bedrock-gateway/common/ctxkey"
)

// LLMBuckets covers model inference latencies, from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts HTTP requests by method, status, and model.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "model"},
	)

	// RequestDuration records request duration in seconds by path and model.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bedrock_gateway_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"path", "model"},
	)

	// StreamingConnections tracks active SSE connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bedrock_gateway_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// TokensTotal counts relayed tokens by model and direction (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		TokensTotal,
	)
}

// GinMiddleware records per-request counters and latency. Model labels come
// from the request model set by the relay controllers.
func GinMiddleware() func(c *gin.Context) {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		model := c.GetString(ctxkey.RequestModel)
		if model == "" {
			model = "none"
		}
		RequestsTotal.WithLabelValues(
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
			model,
		).Inc()
		RequestDuration.WithLabelValues(
			c.FullPath(),
			model,
		).Observe(time.Since(start).Seconds())
	}
}

// RecordUsage feeds the token counters from one relayed call.
func RecordUsage(model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		TokensTotal.WithLabelValues(model, "input").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		TokensTotal.WithLabelValues(model, "output").Add(float64(completionTokens))
	}
}
