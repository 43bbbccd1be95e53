package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"atm/pkg/log"
)

// ZapLogger writes one line per request. Handlers add fields to it with log.AddFields.
func ZapLogger(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor) // save a response status
		logCtx := log.ToContext(r.Context(), log.Named("http"))

		next.ServeHTTP(ww, r.WithContext(logCtx))

		logger := log.ExtractLogger(logCtx)
		fields := []interface{}{
			"method", r.Method,
			"status", ww.Status(),
			"ip", r.RemoteAddr,
			"latency", time.Since(start),
		}
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if ww.Status() >= http.StatusInternalServerError {
			logger.Errorw(r.Host+r.RequestURI, fields...)
			return
		}
		logger.Infow(r.Host+r.RequestURI, fields...)
	}
	return http.HandlerFunc(fn)
}
