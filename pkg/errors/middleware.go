package errors

import (
	"fmt"
	"net/http"
)

// RecoveryFunc converts a recovered panic value into the error sent to the
// client. It runs on the panicking request, so it may log with r's context.
type RecoveryFunc func(r *http.Request, p interface{}) error

// DefaultRecoveryFunc answers every panic with a PermanentError. The panic
// value stays out of the response body.
func DefaultRecoveryFunc(r *http.Request, p interface{}) error {
	return NewPermanent("internal error", fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, p))
}

// RecoveryMiddleware recovers panics raised by downstream handlers and
// answers with the error's HTTP status. A nil recoveryFunc uses DefaultRecoveryFunc.
// http.ErrAbortHandler is re-raised so the server can abort the response.
func RecoveryMiddleware(recoveryFunc RecoveryFunc) func(http.Handler) http.Handler {
	if recoveryFunc == nil {
		recoveryFunc = DefaultRecoveryFunc
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				WriteHTTPError(w, recoveryFunc(r, p))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
