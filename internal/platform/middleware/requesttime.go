package middleware

import (
	"net/http"
	"time"

	"contactgraph/pkg/requestcontext"
)

// RequestTime pins a single observation time per request so every timestamp
// written during one resolve shares the same instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
