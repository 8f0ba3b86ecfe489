package logging

import (
	"net/http"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// maxRequestIDLength bounds client supplied request IDs.
const maxRequestIDLength = 128

// HTTPMiddleware logs the completion of every HTTP request. It reuses a
// well-formed X-Request-ID header, otherwise it generates one, and stores
// both the ID and the logger in the request context.
//
// Server errors log at error level. Client errors log at warn level, except
// cache misses (404) and callers that went away (499).
func HTTPMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if !validRequestID(requestID) {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := WithRequestID(r.Context(), requestID)
			ctx = WithLogger(ctx, logger)
			r = r.WithContext(ctx)

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			logEvent := logger.Info()
			switch status := wrapped.statusCode; {
			case status >= 500:
				logEvent = logger.Error()
			case status >= 400 && status != http.StatusNotFound && status != 499:
				logEvent = logger.Warn()
			}

			logEvent.
				Str(RequestID, requestID).
				Str(Method, r.Method).
				Str(Path, r.URL.Path).
				Int(StatusCode, wrapped.statusCode).
				Int64(BytesOut, wrapped.bytes).
				Int64(Duration, time.Since(start).Milliseconds()).
				Msg("request completed")
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// responseWriter records the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}
