package errors

import (
	"net/http"
)

// StatusClientClosedRequest is the non-standard status used when the caller
// went away before the cache operation finished.
const StatusClientClosedRequest = 499

// HTTPStatusCode returns the appropriate HTTP status code for the given error:
//   - NotFoundError -> 404 Not Found
//   - InvalidInputError -> 400 Bad Request
//   - UnauthorizedError -> 401 Unauthorized
//   - CanceledError -> 499 Client Closed Request
//   - TemporaryError -> 503 Service Unavailable
//   - PermanentError and unknown errors -> 500 Internal Server Error
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnauthorized(err):
		return http.StatusUnauthorized
	case IsCanceled(err):
		return StatusClientClosedRequest
	case IsTemporary(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTPError writes a plain-text error response whose status code is
// derived from the error type.
func WriteHTTPError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	http.Error(w, err.Error(), HTTPStatusCode(err))
}
