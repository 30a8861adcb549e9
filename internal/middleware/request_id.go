// Package middleware provides the HTTP middleware chain: request ids,
// structured request logging, panic recovery, CORS, security headers,
// and Redis-backed rate limiting.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is a private key type so context values never collide.
type contextKey string

const (
	// RequestIDKey is the context key for the request id.
	RequestIDKey contextKey = "request_id"
	// TraceIDKey is the context key for the trace id.
	TraceIDKey contextKey = "trace_id"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// TraceIDHeader carries an optional caller-supplied trace id.
const TraceIDHeader = "X-Trace-ID"

// RequestID tags every request with an id for log correlation. A
// caller-supplied X-Request-ID is honored; otherwise a UUID is
// generated. The id is echoed back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		traceID := r.Header.Get(TraceIDHeader)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		if traceID != "" {
			ctx = context.WithValue(ctx, TraceIDKey, traceID)
		}

		w.Header().Set(RequestIDHeader, requestID)
		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTraceID returns the trace id stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}
