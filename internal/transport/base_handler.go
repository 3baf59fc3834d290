package transport

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync/atomic"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

const MaxPageLimit = 100

var development atomic.Bool

// SetDevelopment toggles stack traces in 5xx responses.
func SetDevelopment(on bool) {
	development.Store(on)
}

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool                       `json:"success"`
	Data       interface{}                `json:"data,omitempty"`
	Message    string                     `json:"message,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Code       internal.ErrorCode         `json:"code,omitempty"`
	Errors     []internal.ValidationError `json:"errors,omitempty"`
	Details    interface{}                `json:"details,omitempty"`
	Pagination *Pagination                `json:"pagination,omitempty"`
	Stack      string                     `json:"stack,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) *Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	h.WriteJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func (h *BaseHandler) WritePaginated(w http.ResponseWriter, data interface{}, p *Pagination) {
	h.WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: p})
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	h.WriteJSON(w, status, Envelope{Success: false, Error: message})
}

// WriteAppError maps err onto the error taxonomy. Causes are logged, never returned.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := internal.AsAppError(err)
	log := logger.From(r.Context())

	body := Envelope{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
	}
	switch d := appErr.Details.(type) {
	case nil:
	case internal.ValidationErrors:
		body.Errors = d.Errors
	default:
		body.Details = d
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", appErr.Code,
			"error", err)
		if development.Load() {
			body.Stack = string(debug.Stack())
		}
	} else {
		log.WarnContext(r.Context(), "request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", appErr.StatusCode,
			"code", appErr.Code)
	}

	h.WriteJSON(w, appErr.StatusCode, body)
}

// DecodeJSON reads the request body into dst.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return internal.ErrInvalidBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return internal.ErrInvalidBody.WithCause(err)
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

// PageParams reads page and limit from the query, applying defaults and the upper bound.
func PageParams(r *http.Request, defaultLimit int) (page, limit int) {
	page, limit = 1, defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
