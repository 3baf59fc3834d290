package notification

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/transport"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

const defaultListLimit = 20

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// List handles GET /api/notifications
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	page, limit := transport.PageParams(r, defaultListLimit)
	q := ListQuery{Page: page, Limit: limit}
	if raw := r.URL.Query().Get("is_read"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.WriteAppError(w, r, internal.NewValidationFieldError("is_read", "قيمة غير صالحة", internal.ErrCodeValidationFailed))
			return
		}
		q.IsRead = &v
	}

	items, total, err := h.Service.List(r.Context(), userID, q)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WritePaginated(w, items, transport.NewPagination(page, limit, total))
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	count, err := h.Service.UnreadCount(r.Context(), userID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, map[string]int64{"count": count}, "")
}

// MarkRead handles PUT /api/notifications/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	n, err := h.Service.MarkRead(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, n, "تم تحديث الإشعار")
}

// MarkAllRead handles PUT /api/notifications/mark-all-read
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	if err := h.Service.MarkAllRead(r.Context(), userID); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, nil, "تم تحديث جميع الإشعارات")
}

// Delete handles DELETE /api/notifications/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	if err := h.Service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, nil, "تم حذف الإشعار")
}
