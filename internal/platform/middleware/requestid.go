// Package middleware holds the HTTP middleware chain applied in the router.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"contactgraph/pkg/requestcontext"
)

// RequestID assigns each request a UUID (or adopts the caller's X-Request-ID)
// and exposes it through the context and the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
