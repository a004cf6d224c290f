package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// quietPaths are scraped often and only logged at debug level
var quietPaths = map[string]bool{
	"/metrics": true,
}

// RequestIDMiddleware tags each request with an ID, taken from the
// X-Request-ID header when the client sent one, and logs its outcome
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)

		logf := InfoContext
		if quietPaths[r.URL.Path] {
			logf = DebugContext
		}
		logf(ctx, "request started", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)

		start := time.Now()
		rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		msg := "request completed"
		switch {
		case rec.statusCode >= 500:
			logf, msg = ErrorContext, "request failed"
		case rec.statusCode >= 400:
			logf, msg = WarnContext, "request failed"
		}
		logf(ctx, msg,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}

// responseWriter records the status code written by the handler
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
