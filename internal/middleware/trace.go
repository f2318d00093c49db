package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/logger"
	"github.com/yukikurage/crm-pipeline-api/internal/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type traceKey struct{}

// Trace tags every request with a trace ID, reusing the client's X-Trace-Id
// when it sends one.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(constants.HeaderTraceID))
		if traceID == "" || len(traceID) > 64 {
			traceID = strings.ReplaceAll(uuid.New().String(), "-", "")
		}

		c.Set(constants.ContextKeyTraceID, traceID)
		ctx := context.WithValue(c.Request.Context(), traceKey{}, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderTraceID, traceID)

		c.Next()
	}
}

// GetTraceID returns the request's trace ID, or "" outside Trace.
func GetTraceID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyTraceID)
}

// TraceIDFromContext returns the trace ID stored on a request context.
func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceKey{}).(string)
	return traceID
}

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}

		fields := []zap.Field{
			zap.String("trace_id", GetTraceID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, zap.Uint64("user_id", userID))
		}
		if orgID, ok := GetOrganizationID(c); ok {
			fields = append(fields, zap.Uint64("organization_id", orgID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		logger.L().Log(level, "request", fields...)
	}
}

// Metrics records request counts and latencies by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
