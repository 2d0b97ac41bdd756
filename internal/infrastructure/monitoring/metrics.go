package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 流程結果
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"pipeline", "outcome"},
	)
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "Pipeline duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"pipeline"},
	)

	imageLookupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_lookup_total",
			Help: "Recipe image lookups by the stage that produced the result",
		},
		[]string{"stage"},
	)

	collectorCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_call_duration_seconds",
			Help:    "External collaborator call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collector", "operation", "status"},
	)
)

// PipelineRun 記錄一次流程執行
func PipelineRun(pipeline string, err error, duration time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	pipelineRunsTotal.WithLabelValues(pipeline, outcome).Inc()
	pipelineDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// ImageLookup 記錄圖片查詢結果來源 (name, ingredient, none)
func ImageLookup(stage string) {
	imageLookupTotal.WithLabelValues(stage).Inc()
}

// CollectorCall 記錄外部服務呼叫
func CollectorCall(collector, operation string, duration time.Duration, err error) {
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeError
	}
	collectorCallDuration.WithLabelValues(collector, operation, status).Observe(duration.Seconds())
}

// HTTPMiddleware 記錄 HTTP 請求數與耗時
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler Prometheus 指標端點
func Handler() http.Handler {
	return promhttp.Handler()
}
