package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/events"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/internal/notification"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type memoryRepository struct {
	mu        sync.Mutex
	items     []*notification.Notification
	createErr error
}

func (m *memoryRepository) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.items = append(m.items, n)
	return nil
}

func (m *memoryRepository) List(_ context.Context, f notification.Filter) ([]*notification.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Notification
	for _, n := range m.items {
		if n.UserID == f.UserID && (f.IsRead == nil || n.IsRead == *f.IsRead) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memoryRepository) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, it := range m.items {
		if it.UserID == userID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) MarkRead(_ context.Context, userID, id string, at time.Time) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id && it.UserID == userID {
			it.IsRead = true
			it.ReadAt = &at
			return it, nil
		}
	}
	return nil, internal.ErrNotificationNotFound
}

func (m *memoryRepository) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, it := range m.items {
		if it.UserID == userID && !it.IsRead {
			it.IsRead = true
			it.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.ID == id && it.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return internal.ErrNotificationNotFound
}

type fakeDirectory struct {
	contacts map[string]*notification.Contact
}

func (f *fakeDirectory) Contact(_ context.Context, userID string) (*notification.Contact, error) {
	if c, ok := f.contacts[userID]; ok {
		return c, nil
	}
	return nil, internal.ErrUserNotFound
}

func (f *fakeDirectory) TransactionTypeName(_ context.Context, id int64) (string, error) {
	if id == 5 {
		return "إصدار جواز سفر", nil
	}
	return "", errors.New("unknown type")
}

type queuedEmail struct {
	To      string
	Subject string
	HTML    string
}

type fakeQueue struct {
	mu     sync.Mutex
	emails []queuedEmail
	err    error
}

func (q *fakeQueue) Enqueue(_ context.Context, to, subject, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.emails = append(q.emails, queuedEmail{To: to, Subject: subject, HTML: body})
	return nil
}

var _ = Describe("Dispatcher", func() {
	var (
		repo       *memoryRepository
		queue      *fakeQueue
		dispatcher *notification.Dispatcher
		ctx        context.Context
	)

	statusEvent := func(eventType, old, next string, notices []events.Notice) *events.TransactionEvent {
		e := events.NewTransactionEvent(eventType, "tx-1", "TXN-LZ8K2M3N-ABC123", "U1", "E1", old, next, notices)
		e.TransactionTypeID = 5
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = &memoryRepository{}
		queue = &fakeQueue{}
		dir := &fakeDirectory{contacts: map[string]*notification.Contact{
			"U1": {Email: "citizen@example.iq", FullName: "أحمد علي"},
		}}
		dispatcher = notification.NewDispatcher(repo, dir, queue, nil)
	})

	It("stores notices and emails the citizen on a status change", func() {
		e := statusEvent(events.EventTypeTransactionSubmitted, "draft", "submitted", []events.Notice{{
			UserID: "U1", Type: "transaction", Title: "تم تقديم المعاملة", Message: "تم تقديم معاملتك", Link: "/transactions/tx-1",
		}})

		Expect(dispatcher.HandleTransactionEvent(ctx, e)).To(Succeed())

		Expect(repo.items).To(HaveLen(1))
		Expect(repo.items[0].UserID).To(Equal("U1"))
		Expect(*repo.items[0].Link).To(Equal("/transactions/tx-1"))
		Expect(queue.emails).To(HaveLen(1))
		Expect(queue.emails[0].To).To(Equal("citizen@example.iq"))
		Expect(queue.emails[0].Subject).To(Equal("تم استلام معاملتك"))
		Expect(queue.emails[0].HTML).To(ContainSubstring(`dir="rtl"`))
		Expect(queue.emails[0].HTML).To(ContainSubstring("إصدار جواز سفر"))
	})

	It("includes the rejection reason in the rejection email", func() {
		e := statusEvent(events.EventTypeTransactionStatusChanged, "under_review", "rejected", nil)
		e.RejectionReason = "missing ID"

		Expect(dispatcher.HandleTransactionEvent(ctx, e)).To(Succeed())

		Expect(queue.emails).To(HaveLen(1))
		Expect(queue.emails[0].HTML).To(ContainSubstring("missing ID"))
	})

	It("sends no email for edges without a template or for field updates", func() {
		Expect(dispatcher.HandleTransactionEvent(ctx, statusEvent(events.EventTypeTransactionStatusChanged, "under_review", "pending_documents", nil))).To(Succeed())
		Expect(dispatcher.HandleTransactionEvent(ctx, statusEvent(events.EventTypeTransactionUpdated, "approved", "approved", nil))).To(Succeed())
		Expect(dispatcher.HandleTransactionEvent(ctx, statusEvent(events.EventTypeTransactionCreated, "", "draft", nil))).To(Succeed())

		Expect(queue.emails).To(BeEmpty())
	})

	It("absorbs storage and mail failures", func() {
		repo.createErr = errors.New("db down")
		queue.err = errors.New("outbox down")
		e := statusEvent(events.EventTypeTransactionStatusChanged, "approved", "completed", []events.Notice{{UserID: "U1", Title: "t", Message: "m"}})

		Expect(dispatcher.HandleTransactionEvent(ctx, e)).To(Succeed())
	})

	It("absorbs unknown recipients", func() {
		e := events.NewTransactionEvent(events.EventTypeTransactionStatusChanged, "tx-2", "TXN-1-AAAAAA", "ghost", "E1", "approved", "completed", nil)
		Expect(dispatcher.HandleTransactionEvent(ctx, e)).To(Succeed())
		Expect(queue.emails).To(BeEmpty())
	})

	It("sends a welcome email on registration", func() {
		Expect(dispatcher.HandleUserRegistered(ctx, events.NewUserRegisteredEvent("U9", "new@example.iq", "زينب كريم"))).To(Succeed())

		Expect(queue.emails).To(HaveLen(1))
		Expect(queue.emails[0].Subject).To(Equal("مرحباً بك في منصة معاملتي"))
		Expect(queue.emails[0].HTML).To(ContainSubstring("زينب كريم"))
	})

	It("receives events through the bus", func() {
		bus := events.NewEventBus(nil)
		dispatcher.RegisterEventHandlers(bus)

		Expect(bus.Publish(ctx, statusEvent(events.EventTypeTransactionSubmitted, "draft", "submitted", []events.Notice{{UserID: "U1", Title: "t", Message: "m"}}))).To(Succeed())
		bus.Wait()

		Expect(repo.items).To(HaveLen(1))
	})
})

var _ = Describe("Templates", func() {
	It("escapes user supplied values", func() {
		email, err := notification.WelcomeEmail("<script>x</script>")
		Expect(err).NotTo(HaveOccurred())
		Expect(email.HTML).NotTo(ContainSubstring("<script>"))
	})

	DescribeTable("status emails",
		func(status, subject string, sends bool) {
			email, ok, err := notification.StatusEmail(status, "label", "أحمد", "TXN-1-AAAAAA", "نوع", "سبب")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(Equal(sends))
			if sends {
				Expect(email.Subject).To(Equal(subject))
				Expect(email.HTML).To(ContainSubstring("TXN-1-AAAAAA"))
			}
		},
		Entry("submitted", "submitted", "تم استلام معاملتك", true),
		Entry("under review", "under_review", "معاملتك قيد المراجعة", true),
		Entry("approved", "approved", "تمت الموافقة على معاملتك", true),
		Entry("rejected", "rejected", "تم رفض معاملتك", true),
		Entry("completed", "completed", "اكتملت معاملتك", true),
		Entry("pending documents", "pending_documents", "", false),
		Entry("cancelled", "cancelled", "", false),
	)
})

var _ = Describe("Handler", func() {
	var (
		repo   *memoryRepository
		router chi.Router
	)

	type envelope struct {
		Success    bool            `json:"success"`
		Data       json.RawMessage `json:"data"`
		Code       string          `json:"code"`
		Pagination *struct {
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
		} `json:"pagination"`
	}

	call := func(method, path string) (*httptest.ResponseRecorder, envelope) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		var env envelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
		return rec, env
	}

	BeforeEach(func() {
		now := time.Now()
		repo = &memoryRepository{items: []*notification.Notification{
			{ID: "n1", UserID: "U1", Title: "a", Message: "a", CreatedAt: now.Add(-time.Minute)},
			{ID: "n2", UserID: "U1", Title: "b", Message: "b", CreatedAt: now, IsRead: true},
			{ID: "n3", UserID: "U2", Title: "c", Message: "c", CreatedAt: now},
		}}
		h := notification.NewHandler(notification.NewService(repo, nil))

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor := user.Actor{ID: "U1", Role: user.RoleCitizen}
				next.ServeHTTP(w, r.WithContext(internal.ContextWithActor(r.Context(), actor)))
			})
		})
		router.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", h.List)
			r.Get("/unread-count", h.UnreadCount)
			r.Put("/mark-all-read", h.MarkAllRead)
			r.Put("/{id}/read", h.MarkRead)
			r.Delete("/{id}", h.Delete)
		})
	})

	It("lists the caller's inbox with the default limit", func() {
		rec, env := call(http.MethodGet, "/api/notifications")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(env.Pagination.Limit).To(Equal(20))
		Expect(env.Pagination.Total).To(Equal(int64(2)))

		_, env = call(http.MethodGet, "/api/notifications?is_read=false")
		Expect(env.Pagination.Total).To(Equal(int64(1)))

		rec, _ = call(http.MethodGet, "/api/notifications?is_read=maybe")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("counts, marks and deletes", func() {
		_, env := call(http.MethodGet, "/api/notifications/unread-count")
		Expect(string(env.Data)).To(MatchJSON(`{"count":1}`))

		rec, _ := call(http.MethodPut, "/api/notifications/n3/read")
		Expect(rec.Code).To(Equal(http.StatusNotFound))

		rec, _ = call(http.MethodPut, "/api/notifications/mark-all-read")
		Expect(rec.Code).To(Equal(http.StatusOK))
		_, env = call(http.MethodGet, "/api/notifications/unread-count")
		Expect(string(env.Data)).To(MatchJSON(`{"count":0}`))

		rec, _ = call(http.MethodDelete, "/api/notifications/n1")
		Expect(rec.Code).To(Equal(http.StatusOK))
		rec, env = call(http.MethodDelete, "/api/notifications/n1")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(env.Code).To(Equal(string(internal.ErrCodeNotificationNotFound)))
	})
})
