package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/muamalati/pkg/logger"
)

const (
	maxLoggedBody = 4 << 10
	redacted      = "[FILTERED]"
)

// secretMarkers match anywhere in a lower-cased key; secretKeys match exactly.
var (
	secretMarkers = []string{"password", "token", "secret", "credential"}
	secretKeys    = map[string]bool{
		"authorization": true,
		"cookie":        true,
		"set-cookie":    true,
		"api_key":       true,
		"x-api-key":     true,
		"session":       true,
	}
)

func isSecret(key string) bool {
	key = strings.ToLower(key)
	if secretKeys[key] {
		return true
	}
	for _, m := range secretMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

// LoggingMiddleware writes one line when a request arrives and one when it completes,
// through the request-scoped logger when RequestID installed one.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lg, ok := logger.Lookup(r.Context())
			if !ok {
				lg = base
			}

			lg.InfoContext(r.Context(), "incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", captureRequestBody(r),
			)

			rec := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			lg.Log(r.Context(), levelFor(status), "response",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", redactBody(rec.body.Bytes()),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// captureRequestBody peeks at most maxLoggedBody bytes and puts them back in front of
// the unread rest. Uploads are skipped, and oversized bodies are logged by size only.
func captureRequestBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return ""
	}
	if r.ContentLength > maxLoggedBody {
		return oversizedBody(r.ContentLength)
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
	if len(head) > maxLoggedBody {
		return oversizedBody(r.ContentLength)
	}
	return redactBody(head)
}

func oversizedBody(size int64) string {
	if size < 0 {
		return fmt.Sprintf("[body over %d bytes]", maxLoggedBody)
	}
	return fmt.Sprintf("[body of %d bytes]", size)
}

// replayBody serves the peeked head then the rest, closing the original body.
type replayBody struct {
	io.Reader
	io.Closer
}

// capturingWriter keeps the first maxLoggedBody bytes of JSON responses.
type capturingWriter struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func (w *capturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.size += len(b)
	if room := maxLoggedBody - w.body.Len(); room > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSecret(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// redactBody masks secret keys in a JSON body. Anything that is not valid JSON is
// logged only by size.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "[non-JSON body]"
	}
	clean, err := json.Marshal(redactValue(doc))
	if err != nil {
		return redacted
	}
	return string(clean)
}

func redactValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if isSecret(k) {
				t[k] = redacted
				continue
			}
			t[k] = redactValue(child)
		}
		return t
	case []interface{}:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	default:
		return v
	}
}
