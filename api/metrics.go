package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the API request counters and latencies
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	commits  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bitrent",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Number of API requests by path and status.",
		}, []string{"path", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bitrent",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency by path.",
		}, []string{"path"}),
		commits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bitrent",
			Subsystem: "state",
			Name:      "commits_total",
			Help:      "Number of committed state versions.",
		}),
	}
}

func (s *Service) measure(c *gin.Context) {
	started := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		path = "unknown"
	}

	s.metrics.requests.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
	s.metrics.duration.WithLabelValues(path).Observe(time.Since(started).Seconds())
}
