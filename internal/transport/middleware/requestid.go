package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/muamalati/pkg/logger"
)

// TraceHeader carries the correlation id in both directions.
const TraceHeader = "X-Trace-ID"

// RequestID accepts a caller-supplied trace id only when it is a UUID, echoes it on the
// response and binds it to the request logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(TraceHeader, id)

		next.ServeHTTP(w, r.WithContext(logger.With(r.Context(), "trace_id", id)))
	})
}
