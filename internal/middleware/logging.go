// Package middleware provides HTTP middleware for the membercard API.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ligadigital/membercard/internal/logger"
)

// LoggingMiddleware provides structured JSON logging for HTTP requests
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware instance
func NewLoggingMiddleware(log *slog.Logger) *LoggingMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingMiddleware{
		logger: log,
	}
}

// Handler returns an HTTP middleware that logs requests in structured JSON
// format, carrying the chi request id as the correlation id.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := middleware.GetReqID(r.Context())
		ctx := logger.SetCorrelationID(r.Context(), requestID)
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		attrs := []any{
			slog.String("correlation_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", duration),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			attrs = append(attrs, slog.String("x_forwarded_for", xff))
		}

		switch {
		case ww.Status() >= 500:
			m.logger.Error("HTTP request completed with server error", attrs...)
		case ww.Status() >= 400:
			m.logger.Warn("HTTP request completed with client error", attrs...)
		default:
			m.logger.Info("HTTP request completed", attrs...)
		}
	})
}

// StructuredLogger returns a chi-compatible middleware that logs with slog
func StructuredLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return NewLoggingMiddleware(log).Handler
}
