package general

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/transport"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

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

// Provinces handles GET /api/general/provinces
func (h *Handler) Provinces(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Provinces(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, items, "")
}

// Departments handles GET /api/general/departments
func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := DepartmentFilter{Type: q.Get("type")}
	if raw := q.Get("province_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteAppError(w, r, internal.NewValidationFieldError("province_id", "معرف المحافظة غير صالح", internal.ErrCodeValidationFailed))
			return
		}
		f.ProvinceID = &id
	}

	items, err := h.Service.Departments(r.Context(), f)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, items, "")
}

// TransactionTypes handles GET /api/general/transaction-types
func (h *Handler) TransactionTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.TransactionTypes(r.Context(), r.URL.Query().Get("department_type"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, items, "")
}

// RejectionReasons handles GET /api/general/rejection-reasons
func (h *Handler) RejectionReasons(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.RejectionReasons(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, items, "")
}

// Statistics handles GET /api/general/statistics
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	stats, err := h.Service.Statistics(r.Context(), actor)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, stats, "")
}
