package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// RecordFunc receives one observation per served request.
type RecordFunc func(method, path string, status int, duration time.Duration)

// Metrics reports requests by route pattern, so path parameters do not
// blow up the label cardinality.
func Metrics(record RecordFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.RoutePatterns) > 0 {
				path = strings.Replace(strings.Join(rctx.RoutePatterns, ""), "/*/", "/", -1)
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			record(r.Method, path, status, time.Since(start))
		}
		return http.HandlerFunc(fn)
	}
}
