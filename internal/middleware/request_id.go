package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sevatrust/seva-donations/internal/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags the request context and response with an id. A well-formed
// incoming X-Request-Id is reused.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
