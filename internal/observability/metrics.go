// Package observability exposes the Prometheus metrics of the service and
// the gRPC and gin middleware that record them.
package observability

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	syncOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_sync_operations_total",
			Help: "Sync coordinator operations by outcome.",
		},
		[]string{"op", "result"},
	)
	syncOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_sync_operation_duration_seconds",
			Help:    "Sync coordinator operation latencies in seconds, including every backend round trip.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_http_requests_total",
			Help: "Total number of HTTP requests processed by the ops server.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)
	observersActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatsync_observers_active",
			Help: "Number of connected change observers.",
		},
		[]string{"kind"},
	)
	eventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_events_delivered_total",
			Help: "Change events pushed to observers.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		syncOpsTotal,
		syncOpDuration,
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		rateLimitedTotal,
		observersActive,
		eventsDelivered,
		amqpPublishErrorsTotal,
	)
}

// ObserveSyncOp records one coordinator operation.
func ObserveSyncOp(op string, d time.Duration, err error) {
	syncOpsTotal.WithLabelValues(op, result(err)).Inc()
	syncOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		countGRPC(info.FullMethod, err)
		return resp, err
	}
}

func GRPCServerMetricsStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		err := handler(srv, ss)
		countGRPC(info.FullMethod, err)
		return err
	}
}

func countGRPC(fullMethod string, err error) {
	service, method := splitFullMethod(fullMethod)
	grpcServerHandledTotal.WithLabelValues(service, method, status.Code(err).String()).Inc()
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func RateLimited(route string) {
	rateLimitedTotal.WithLabelValues(route).Inc()
}

func IncObservers(kind string) {
	observersActive.WithLabelValues(kind).Inc()
}

func DecObservers(kind string) {
	observersActive.WithLabelValues(kind).Dec()
}

func IncEventDelivered(kind, event string) {
	eventsDelivered.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
