package transaction

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/internal/transport"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

const (
	defaultListLimit = 10
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	MaxFileSize int64
}

func NewHandler(service ServiceAPI, maxFileSize int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		MaxFileSize: maxFileSize,
	}
}

// Create handles POST /api/transactions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	var dto CreateDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	t, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusCreated, t, "تم إنشاء المعاملة بنجاح")
}

// List handles GET /api/transactions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	q, err := listQueryFrom(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	items, total, err := h.Service.List(r.Context(), actor, q)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WritePaginated(w, items, transport.NewPagination(q.Page, q.Limit, total))
}

// Export handles GET /api/transactions/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	q, err := listQueryFrom(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFileName(time.Now())+`"`)
	if err := h.Service.Export(r.Context(), actor, q, w); err != nil {
		w.Header().Del("Content-Disposition")
		h.WriteAppError(w, r, err)
		return
	}
}

// Get handles GET /api/transactions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	id, err := transactionID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	d, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, d, "")
}

// Submit handles POST /api/transactions/{id}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Submit, "تم تقديم المعاملة بنجاح")
}

// Cancel handles POST /api/transactions/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Cancel, "تم إلغاء المعاملة بنجاح")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor user.Actor, id string) (*Transaction, error), message string) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	id, err := transactionID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	t, err := fn(r.Context(), actor, id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, t, message)
}

// Update handles PUT /api/transactions/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	id, err := transactionID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	var dto UpdateDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	t, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, t, "تم تحديث المعاملة بنجاح")
}

// Delete handles DELETE /api/transactions/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	id, err := transactionID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, nil, "تم حذف المعاملة بنجاح")
}

// UploadDocument handles POST /api/transactions/{id}/documents as multipart/form-data
// with a "file" part and a "document_type" field.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	id, err := transactionID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if h.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxFileSize+(1<<20))
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		h.WriteAppError(w, r, internal.ErrInvalidBody.WithCause(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteAppError(w, r, internal.NewValidationFieldError("file", "الملف مطلوب", internal.ErrCodeValidationFailed))
		return
	}
	defer file.Close()

	doc, err := h.Service.UploadDocument(r.Context(), actor, id, UploadInput{
		DocumentType: r.FormValue("document_type"),
		FileName:     header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Body:         file,
	})
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusCreated, doc, "تم رفع المستند بنجاح")
}

func transactionID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", internal.ErrInvalidID
	}
	return id, nil
}

func listQueryFrom(r *http.Request) (ListQuery, error) {
	page, limit := transport.PageParams(r, defaultListLimit)
	q := ListQuery{
		Page:   page,
		Limit:  limit,
		Status: Status(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("department_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return q, internal.NewValidationFieldError("department_id", "معرف الدائرة غير صالح", internal.ErrCodeValidationFailed)
		}
		q.DepartmentID = id
	}
	return q, nil
}
