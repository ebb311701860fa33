package httpapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"cyberguard/internal/logger"
)

const maxLoggedErrorBody = 256

// statusRecorder captures the status and, for error logging, the first bytes
// of the body.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	maxLogBytes  int
	logBody      bytes.Buffer
	truncated    bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if remaining := r.maxLogBytes - r.logBody.Len(); remaining > 0 {
		if len(p) > remaining {
			r.logBody.Write(p[:remaining])
			r.truncated = true
		} else {
			r.logBody.Write(p)
		}
	} else if len(p) > 0 {
		r.truncated = true
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytesWritten += n
	return n, err
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				maxLogBytes:    maxLoggedErrorBody,
			}
			next.ServeHTTP(recorder, r)

			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"bytes", recorder.bytesWritten,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			}
			switch {
			case recorder.statusCode >= 500:
				log.Error("http request", append(kv, "body", recorder.logBody.String(), "truncated", recorder.truncated)...)
			case recorder.statusCode >= 400:
				log.Info("http request", append(kv, "body", recorder.logBody.String())...)
			default:
				log.Info("http request", kv...)
			}
		})
	}
}
