package transaction_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/internal/transaction"
)

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
	Pagination *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"totalPages"`
	} `json:"pagination"`
}

var _ = Describe("Transaction handler", func() {
	var (
		repo   *memoryRepository
		router chi.Router
		actor  user.Actor
	)

	do := func(method, path string, body []byte, contentType string) (*httptest.ResponseRecorder, envelope) {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var env envelope
		if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
			Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
		}
		return rec, env
	}

	createOne := func() transaction.Transaction {
		rec, env := do(http.MethodPost, "/api/transactions", []byte(`{"transaction_type_id":5,"department_id":3}`), "application/json")
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var t transaction.Transaction
		Expect(json.Unmarshal(env.Data, &t)).To(Succeed())
		return t
	}

	BeforeEach(func() {
		repo = newMemoryRepository()
		storage, err := transaction.NewLocalStorage(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		h := transaction.NewHandler(transaction.NewService(repo, &recordingPublisher{}, storage, 1<<20, nil), 1<<20)
		actor = user.Actor{ID: "U1", Role: user.RoleCitizen}

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithActor(r.Context(), actor)))
			})
		})
		router.Route("/api/transactions", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/export", h.Export)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/submit", h.Submit)
			r.Post("/{id}/cancel", h.Cancel)
			r.Post("/{id}/documents", h.UploadDocument)
		})
	})

	It("creates a draft and answers 201 with the envelope", func() {
		rec, env := do(http.MethodPost, "/api/transactions", []byte(`{"transaction_type_id":5,"department_id":3}`), "application/json")

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(env.Success).To(BeTrue())
		Expect(env.Message).To(Equal("تم إنشاء المعاملة بنجاح"))
	})

	It("answers 400 for a malformed body", func() {
		rec, env := do(http.MethodPost, "/api/transactions", []byte(`{`), "application/json")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(env.Success).To(BeFalse())
		Expect(env.Code).To(Equal(string(internal.ErrCodeInvalidBody)))
	})

	It("paginates the list with the default limit", func() {
		for i := 0; i < 3; i++ {
			createOne()
		}

		rec, env := do(http.MethodGet, "/api/transactions?page=2&limit=2", nil, "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(env.Pagination).NotTo(BeNil())
		Expect(env.Pagination.Page).To(Equal(2))
		Expect(env.Pagination.Limit).To(Equal(2))
		Expect(env.Pagination.Total).To(Equal(int64(3)))
		Expect(env.Pagination.TotalPages).To(Equal(2))

		_, env = do(http.MethodGet, "/api/transactions", nil, "")
		Expect(env.Pagination.Limit).To(Equal(10))
	})

	It("submits and reports invalid transitions as 400", func() {
		t := createOne()

		rec, env := do(http.MethodPost, "/api/transactions/"+t.ID+"/submit", nil, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(env.Message).To(Equal("تم تقديم المعاملة بنجاح"))

		rec, env = do(http.MethodPost, "/api/transactions/"+t.ID+"/submit", nil, "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(env.Code).To(Equal(string(internal.ErrCodeInvalidTransition)))
	})

	It("answers 403 when a citizen updates", func() {
		t := createOne()
		rec, env := do(http.MethodPut, "/api/transactions/"+t.ID, []byte(`{"status":"submitted"}`), "application/json")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(env.Code).To(Equal(string(internal.ErrCodeForbidden)))
	})

	It("answers 400 for a malformed id and 404 for an unknown one", func() {
		rec, _ := do(http.MethodGet, "/api/transactions/not-a-uuid", nil, "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec, env := do(http.MethodGet, "/api/transactions/0b7f3b4e-8a43-4a36-9b53-6f3ef1d0a001", nil, "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(env.Code).To(Equal(string(internal.ErrCodeTransactionNotFound)))
	})

	It("deletes the owner's draft", func() {
		t := createOne()
		rec, env := do(http.MethodDelete, "/api/transactions/"+t.ID, nil, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(env.Message).To(Equal("تم حذف المعاملة بنجاح"))
	})

	It("accepts a multipart document upload", func() {
		t := createOne()

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		Expect(mw.WriteField("document_type", "national_id")).To(Succeed())
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {`form-data; name="file"; filename="id.pdf"`},
			"Content-Type":        {"application/pdf"},
		})
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("%PDF-1.4 test"))
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		rec, env := do(http.MethodPost, "/api/transactions/"+t.ID+"/documents", body.Bytes(), mw.FormDataContentType())

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(env.Success).To(BeTrue())
		Expect(repo.documents).To(HaveLen(1))
		Expect(repo.documents[0].MimeType).To(Equal("application/pdf"))
	})

	It("streams the export as xlsx for staff only", func() {
		createOne()

		rec, _ := do(http.MethodGet, "/api/transactions/export", nil, "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		actor = user.Actor{ID: "A1", Role: user.RoleAdmin}
		rec, _ = do(http.MethodGet, "/api/transactions/export", nil, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("transactions_"))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})
})
