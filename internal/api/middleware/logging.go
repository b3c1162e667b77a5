package middleware

import (
	"fmt"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewStructuredLogger returns a request logging middleware that emits one
// logrus entry per request, carrying the chi request ID.
func NewStructuredLogger(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return chiMiddleware.RequestLogger(&structuredLogger{logger: logger})
}

type structuredLogger struct {
	logger *logrus.Logger
}

func (l *structuredLogger) NewLogEntry(r *http.Request) chiMiddleware.LogEntry {
	fields := logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"remote_addr": r.RemoteAddr,
	}
	if reqID := chiMiddleware.GetReqID(r.Context()); reqID != "" {
		fields["request_id"] = reqID
	}
	return &structuredLoggerEntry{logger: l.logger.WithFields(fields)}
}

type structuredLoggerEntry struct {
	logger logrus.FieldLogger
}

func (e *structuredLoggerEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	e.logger.WithFields(logrus.Fields{
		"status":      status,
		"bytes":       bytes,
		"duration_ms": float64(elapsed.Nanoseconds()) / 1e6,
	}).Info("Request completed")
}

func (e *structuredLoggerEntry) Panic(v interface{}, stack []byte) {
	e.logger.WithField("panic", fmt.Sprintf("%+v", v)).Error(string(stack))
}
