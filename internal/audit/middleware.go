package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/muamalati/internal"
)

const writeTimeout = 3 * time.Second

// Recorder writes audit entries for successful requests.
type Recorder struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(repo RepositoryAPI, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger, now: time.Now}
}

// Middleware records action against entityType when the wrapped handler answers with success.
// The entity id comes from the response data or the {id} route parameter.
func (rec *Recorder) Middleware(action, entityType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status >= http.StatusBadRequest {
				return
			}
			entityID, ok := successEntityID(cw.body.Bytes())
			if !ok {
				return
			}
			if entityID == "" {
				entityID = chi.URLParam(r, "id")
			}

			rec.Record(r.Context(), &Entry{
				UserID:     internal.UserIDFromContext(r.Context()),
				Action:     action,
				EntityType: entityType,
				EntityID:   entityID,
				Details: map[string]interface{}{
					"method": r.Method,
					"path":   r.URL.Path,
				},
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
			})
		})
	}
}

// Record persists e. Failures are logged only.
func (rec *Recorder) Record(ctx context.Context, e *Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = rec.now()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := rec.repo.Create(ctx, e); err != nil {
		rec.logger.ErrorContext(ctx, "failed to write audit log",
			"error", err,
			"action", e.Action,
			"entity_id", e.EntityID)
	}
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func successEntityID(body []byte) (string, bool) {
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || !env.Success {
		return "", false
	}
	var data struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", true
	}
	switch id := data.ID.(type) {
	case string:
		return id, true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	}
	return "", true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
