package middleware

import (
	"net/http"

	"github.com/tendant/simple-cards/internal/httputil"
)

// RequestSizeLimit limits the request body to maxBytes. Requests that declare a
// larger Content-Length are rejected up front; the rest are cut off while reading
// and reported by httputil.ReadJSON.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}
