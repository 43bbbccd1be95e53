package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"

	"atm/pkg/log"
)

var (
	errInternal = http.StatusText(http.StatusInternalServerError)
)

type internalError struct {
	Code    int         `json:"code,omitempty"`
	Message interface{} `json:"message,omitempty"`
}

type internalErrorResponse struct {
	Error *internalError `json:"error,omitempty"`
}

// Recoverer turns a panic into a 500 response. The panic and its stack
// go to the request log line.
func Recoverer(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log.AddFields(r.Context(), "panic", rvr, "stack", string(debug.Stack()))
				log.Errorw("recovered from panic", "path", r.URL.Path, "panic", rvr)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, &internalErrorResponse{
					Error: &internalError{Code: http.StatusInternalServerError, Message: errInternal},
				})
			}
		}()

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
