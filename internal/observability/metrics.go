package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_api_requests_total",
			Help: "Total number of messaging API calls issued by the sync engine.",
		},
		[]string{"op", "outcome"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_api_request_duration_seconds",
			Help:    "Messaging API call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	pollSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_poll_skipped_total",
			Help: "Timer ticks that issued no request.",
		},
		[]string{"concern", "reason"},
	)
	messagesAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_messages_appended_total",
			Help: "Messages appended to the active log by incremental polls.",
		},
	)
	optimisticSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_optimistic_sends_total",
			Help: "Optimistic sends by final outcome.",
		},
		[]string{"outcome"},
	)
	staleResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_stale_responses_total",
			Help: "Responses dropped because the state they targeted moved on.",
		},
		[]string{"op"},
	)
	activityState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_client_active",
			Help: "1 when the client has user attention, 0 when idle.",
		},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests processed by the view bridge.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		pollSkippedTotal,
		messagesAppendedTotal,
		optimisticSendsTotal,
		staleResponsesTotal,
		activityState,
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
	activityState.Set(1)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveAPICall records one messaging API call.
func ObserveAPICall(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	apiRequestsTotal.WithLabelValues(op, outcome).Inc()
	apiRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func IncPollSkipped(concern, reason string) {
	pollSkippedTotal.WithLabelValues(concern, reason).Inc()
}

func AddMessagesAppended(n int) {
	messagesAppendedTotal.Add(float64(n))
}

func IncOptimisticSend(outcome string) {
	optimisticSendsTotal.WithLabelValues(outcome).Inc()
}

func IncStaleResponse(op string) {
	staleResponsesTotal.WithLabelValues(op).Inc()
}

func SetActive(active bool) {
	if active {
		activityState.Set(1)
		return
	}
	activityState.Set(0)
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
