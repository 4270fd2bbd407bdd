package middleware

import (
	"net/http"

	"github.com/dinehq/maitred/internal/api"
)

// MaxBodyBytes caps the request body size. A declared length over the
// cap is rejected up front; chunked bodies are cut off by MaxBytesReader
// as they stream.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case limit <= 0 || r.Body == nil:
				next.ServeHTTP(w, r)
			case r.ContentLength > limit:
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			default:
				r.Body = http.MaxBytesReader(w, r.Body, limit)
				next.ServeHTTP(w, r)
			}
		})
	}
}
