// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/metrics"
)

// Recovery returns middleware that turns a handler panic into a 500 status
// response. A response the handler already started is left as it is.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			// The mux sets the pattern on the way in
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHandlerPanic(route)

			log.Error().
				Interface("error", rec).
				Str("stack", string(debug.Stack())).
				Str("route", route).
				Str("client", maskIP(r.RemoteAddr)).
				Bool("response_started", rw.wroteHeader).
				Msg("Status handler panicked")

			if !rw.wroteHeader {
				writeErrorResponse(rw, http.StatusInternalServerError, "Internal server error", startTime)
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
