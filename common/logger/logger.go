package logger

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin key and log field that carry the request ID.
const RequestIDKey = "request_id"

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// Initialize builds the process logger: JSON with ISO8601 timestamps in
// production, colored console output otherwise.
func Initialize(env string) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := config.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return l
}

// RequestID tags every request with an ID, reusing the caller's
// X-Request-ID when present. The ID is stored on the gin context and on
// the request context so services can log it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the request ID of a gin or request context, or ""
// outside a request.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if gc, ok := ctx.(*gin.Context); ok {
		if id := gc.GetString(RequestIDKey); id != "" {
			return id
		}
		if gc.Request == nil {
			return ""
		}
		ctx = gc.Request.Context()
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// With annotates l with the request ID carried by ctx.
func With(ctx context.Context, l *zap.Logger) *zap.Logger {
	if id := RequestIDFrom(ctx); id != "" {
		return l.With(zap.String(RequestIDKey, id))
	}
	return l
}
