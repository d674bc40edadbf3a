package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"creatorpack/internal/logging"
	"creatorpack/internal/services"
)

// requestLogger logs one line per request at a level chosen from the status
// code, and stamps the chi request id onto the context as the correlation id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())
			r = r.WithContext(services.WithRequestID(r.Context(), requestID))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []logging.Attr{
				logging.String(logging.FieldCorrelationID, requestID),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("response_bytes", ww.BytesWritten()),
				logging.Duration("latency", time.Since(start)),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request completed", logging.Args(attrs...)...)
			case status >= http.StatusBadRequest:
				logger.Warn("request completed", logging.Args(attrs...)...)
			default:
				logger.Debug("request completed", logging.Args(attrs...)...)
			}
		})
	}
}
