package transaction_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aarondl/null/v8"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/events"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/internal/transaction"
)

// memoryRepository mirrors the compare-and-swap contract of the SQL repository.
type memoryRepository struct {
	mu         sync.Mutex
	items      map[string]*transaction.Transaction
	history    []*transaction.History
	documents  []*transaction.Document
	lastFilter transaction.Filter
	failWrites error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{items: make(map[string]*transaction.Transaction)}
}

func (m *memoryRepository) Create(_ context.Context, t *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id string) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, internal.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepository) GetDetail(ctx context.Context, id string) (*transaction.Detail, error) {
	t, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &transaction.Detail{Transaction: t}
	for _, h := range m.history {
		if h.TransactionID == id {
			d.History = append(d.History, h)
		}
	}
	return d, nil
}

func (m *memoryRepository) List(_ context.Context, f transaction.Filter) ([]*transaction.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = f
	var out []*transaction.Transaction
	for _, t := range m.items {
		if f.CitizenID != "" && t.CitizenID != f.CitizenID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackingNumber < out[j].TrackingNumber })
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

func (m *memoryRepository) ApplyDecision(_ context.Context, id string, expected transaction.Status, columns map[string]interface{}, h *transaction.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	t, ok := m.items[id]
	if !ok {
		return internal.ErrTransactionNotFound
	}
	if status, changed := columns["status"]; changed {
		if t.Status != expected {
			return internal.NewInvalidTransitionError(string(t.Status), status.(string))
		}
		t.Status = transaction.Status(status.(string))
	}
	m.history = append(m.history, h)
	return nil
}

func (m *memoryRepository) Delete(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return nil, internal.ErrTransactionNotFound
	}
	delete(m.items, id)
	var paths []string
	kept := m.documents[:0]
	for _, d := range m.documents {
		if d.TransactionID == id {
			paths = append(paths, d.FilePath)
			continue
		}
		kept = append(kept, d)
	}
	m.documents = kept
	return paths, nil
}

func (m *memoryRepository) AddDocument(_ context.Context, d *transaction.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	m.documents = append(m.documents, d)
	return nil
}

func (m *memoryRepository) historyFor(id string) []*transaction.History {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transaction.History
	for _, h := range m.history {
		if h.TransactionID == id {
			out = append(out, h)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []*events.TransactionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.TransactionEvent
	for _, e := range p.events {
		if te, ok := e.(*events.TransactionEvent); ok && te.EventType() == eventType {
			out = append(out, te)
		}
	}
	return out
}

var _ = Describe("Transaction service", func() {
	var (
		repo      *memoryRepository
		publisher *recordingPublisher
		storage   *transaction.LocalStorage
		uploadDir string
		svc       *transaction.Service
		ctx       context.Context

		u1       user.Actor
		u2       user.Actor
		employee user.Actor
		admin    user.Actor
	)

	createDraft := func(owner user.Actor) *transaction.Transaction {
		t, err := svc.Create(ctx, owner, transaction.CreateDTO{TransactionTypeID: 5, DepartmentID: 3})
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		repo = newMemoryRepository()
		publisher = &recordingPublisher{}
		uploadDir = GinkgoT().TempDir()
		storage, err = transaction.NewLocalStorage(uploadDir)
		Expect(err).NotTo(HaveOccurred())
		svc = transaction.NewService(repo, publisher, storage, 1024, nil)

		u1 = user.Actor{ID: "U1", Role: user.RoleCitizen}
		u2 = user.Actor{ID: "U2", Role: user.RoleCitizen}
		dept := int64(3)
		employee = user.Actor{ID: "E1", Role: user.RoleEmployee, DepartmentID: &dept}
		admin = user.Actor{ID: "A1", Role: user.RoleAdmin}
	})

	Describe("Create", func() {
		It("creates a draft with a tracking number and no history", func() {
			// When
			t := createDraft(u1)

			// Then
			Expect(t.Status).To(Equal(transaction.StatusDraft))
			Expect(t.CitizenID).To(Equal("U1"))
			Expect(t.TransactionTypeID).To(Equal(int64(5)))
			Expect(t.DepartmentID).To(Equal(int64(3)))
			Expect(t.TrackingNumber).To(MatchRegexp(`^TXN-[A-Z0-9]+-[A-Z0-9]{6}$`))
			Expect(repo.historyFor(t.ID)).To(BeEmpty())

			created := publisher.ofType(events.EventTypeTransactionCreated)
			Expect(created).To(HaveLen(1))
			Expect(created[0].Notices).To(HaveLen(1))
			Expect(created[0].Notices[0].UserID).To(Equal("U1"))
		})

		It("forbids staff", func() {
			_, err := svc.Create(ctx, employee, transaction.CreateDTO{TransactionTypeID: 5, DepartmentID: 3})
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("validates the body", func() {
			_, err := svc.Create(ctx, u1, transaction.CreateDTO{DepartmentID: 3, Priority: "whenever"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("hides storage errors behind a generic failure", func() {
			repo.failWrites = errors.New("connection reset")
			_, err := svc.Create(ctx, u1, transaction.CreateDTO{TransactionTypeID: 5, DepartmentID: 3})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})

	Describe("Submit", func() {
		It("moves a draft to submitted with one history entry and one notification", func() {
			t := createDraft(u1)

			got, err := svc.Submit(ctx, u1, t.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(transaction.StatusSubmitted))
			Expect(got.SubmissionDate).NotTo(BeNil())

			history := repo.historyFor(t.ID)
			Expect(history).To(HaveLen(1))
			Expect(*history[0].OldStatus).To(Equal(transaction.StatusDraft))
			Expect(*history[0].NewStatus).To(Equal(transaction.StatusSubmitted))

			submitted := publisher.ofType(events.EventTypeTransactionSubmitted)
			Expect(submitted).To(HaveLen(1))
			Expect(submitted[0].Notices).To(HaveLen(1))
			Expect(submitted[0].Notices[0].UserID).To(Equal("U1"))
		})

		It("forbids another citizen", func() {
			t := createDraft(u1)
			_, err := svc.Submit(ctx, u2, t.ID)
			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(repo.historyFor(t.ID)).To(BeEmpty())
		})

		It("returns not found for an unknown id", func() {
			_, err := svc.Submit(ctx, u1, "missing")
			Expect(err).To(MatchError(internal.ErrTransactionNotFound))
		})
	})

	Describe("Update", func() {
		It("runs the full round trip with four history entries", func() {
			t := createDraft(u1)
			_, err := svc.Submit(ctx, u1, t.ID)
			Expect(err).NotTo(HaveOccurred())

			for _, status := range []string{"under_review", "approved", "completed"} {
				_, err := svc.Update(ctx, employee, t.ID, transaction.UpdateDTO{Status: null.StringFrom(status)})
				Expect(err).NotTo(HaveOccurred())
			}

			got, err := repo.GetByID(ctx, t.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(transaction.StatusCompleted))
			Expect(repo.historyFor(t.ID)).To(HaveLen(4))
			Expect(publisher.ofType(events.EventTypeTransactionStatusChanged)).To(HaveLen(3))
		})

		It("refuses submitted to rejected", func() {
			t := createDraft(u1)
			_, err := svc.Submit(ctx, u1, t.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Update(ctx, employee, t.ID, transaction.UpdateDTO{
				Status:          null.StringFrom("rejected"),
				RejectionReason: null.StringFrom("missing ID"),
			})
			Expect(err).To(MatchError(internal.NewInvalidTransitionError("submitted", "rejected")))
			Expect(repo.historyFor(t.ID)).To(HaveLen(1))
		})

		It("forbids citizens", func() {
			t := createDraft(u1)
			_, err := svc.Update(ctx, u1, t.ID, transaction.UpdateDTO{Status: null.StringFrom("submitted")})
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("surfaces a lost compare-and-swap as InvalidTransition", func() {
			t := createDraft(u1)
			_, err := svc.Submit(ctx, u1, t.ID)
			Expect(err).NotTo(HaveOccurred())

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				errs []error
			)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.Update(ctx, employee, t.ID, transaction.UpdateDTO{Status: null.StringFrom("under_review")})
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}()
			}
			wg.Wait()

			failures := 0
			for _, err := range errs {
				if err != nil {
					appErr, ok := internal.IsAppError(err)
					Expect(ok).To(BeTrue())
					Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransition))
					failures++
				}
			}
			Expect(failures).To(Equal(1))
			Expect(repo.historyFor(t.ID)).To(HaveLen(2))
		})
	})

	Describe("Cancel", func() {
		It("lets the owner cancel a draft", func() {
			t := createDraft(u1)
			got, err := svc.Cancel(ctx, u1, t.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(transaction.StatusCancelled))
		})

		It("forbids the owner once submitted but lets an admin cancel", func() {
			t := createDraft(u1)
			_, err := svc.Submit(ctx, u1, t.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Cancel(ctx, u1, t.ID)
			Expect(err).To(MatchError(internal.ErrForbidden))

			got, err := svc.Cancel(ctx, admin, t.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(transaction.StatusCancelled))
		})
	})

	Describe("Get", func() {
		It("hides other citizens' transactions", func() {
			t := createDraft(u1)
			_, err := svc.Get(ctx, u2, t.ID)
			Expect(err).To(MatchError(internal.ErrTransactionNotFound))

			d, err := svc.Get(ctx, employee, t.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.ID).To(Equal(t.ID))
		})

		It("forbids legal advisors", func() {
			t := createDraft(u1)
			_, err := svc.Get(ctx, user.Actor{ID: "L1", Role: user.RoleLegalAdvisor}, t.ID)
			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})

	Describe("List", func() {
		It("scopes citizens to their own transactions", func() {
			createDraft(u1)
			createDraft(u2)

			items, total, err := svc.List(ctx, u1, transaction.ListQuery{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(items[0].CitizenID).To(Equal("U1"))
		})

		It("scopes employees to their department or assignments", func() {
			_, _, err := svc.List(ctx, employee, transaction.ListQuery{Page: 2, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastFilter.ScopeDepartmentID).To(HaveValue(Equal(int64(3))))
			Expect(repo.lastFilter.ScopeAssignedTo).To(Equal("E1"))
			Expect(repo.lastFilter.Offset).To(Equal(10))
		})

		It("rejects an unknown status filter", func() {
			_, _, err := svc.List(ctx, admin, transaction.ListQuery{Status: "lost"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("lets an admin delete a completed transaction of another citizen", func() {
			t := createDraft(u2)
			repo.items[t.ID].Status = transaction.StatusCompleted

			Expect(svc.Delete(ctx, employee, t.ID)).To(MatchError(internal.ErrForbidden))
			Expect(svc.Delete(ctx, u1, t.ID)).To(MatchError(internal.ErrForbidden))
			Expect(svc.Delete(ctx, admin, t.ID)).To(Succeed())

			_, err := repo.GetByID(ctx, t.ID)
			Expect(err).To(MatchError(internal.ErrTransactionNotFound))
		})

		It("lets a citizen delete only their own draft", func() {
			t := createDraft(u1)
			Expect(svc.Delete(ctx, u1, t.ID)).To(Succeed())
		})

		It("removes the stored files of the deleted transaction only", func() {
			t := createDraft(u1)
			keep := createDraft(u1)
			upload := func(id string) *transaction.Document {
				doc, err := svc.UploadDocument(ctx, u1, id, transaction.UploadInput{
					DocumentType: "national_id",
					FileName:     "id.pdf",
					MimeType:     "application/pdf",
					Body:         strings.NewReader("%PDF-1.4"),
				})
				Expect(err).NotTo(HaveOccurred())
				return doc
			}
			gone := upload(t.ID)
			stays := upload(keep.ID)

			Expect(svc.Delete(ctx, u1, t.ID)).To(Succeed())

			_, statErr := os.Stat(gone.FilePath)
			Expect(os.IsNotExist(statErr)).To(BeTrue())
			_, statErr = os.Stat(stays.FilePath)
			Expect(statErr).NotTo(HaveOccurred())
		})

		It("still succeeds when a stored file is already missing", func() {
			t := createDraft(u1)
			doc, err := svc.UploadDocument(ctx, u1, t.ID, transaction.UploadInput{
				DocumentType: "national_id",
				FileName:     "id.pdf",
				MimeType:     "application/pdf",
				Body:         strings.NewReader("%PDF-1.4"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Remove(doc.FilePath)).To(Succeed())

			Expect(svc.Delete(ctx, u1, t.ID)).To(Succeed())
		})
	})

	Describe("UploadDocument", func() {
		It("stores the blob and records its metadata", func() {
			t := createDraft(u1)

			doc, err := svc.UploadDocument(ctx, u1, t.ID, transaction.UploadInput{
				DocumentType: "national_id",
				FileName:     "id.pdf",
				MimeType:     "application/pdf",
				Body:         strings.NewReader("%PDF-1.4"),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(doc.FileSize).To(Equal(int64(8)))
			Expect(doc.FilePath).To(HavePrefix(uploadDir))
			Expect(doc.FilePath).To(HaveSuffix(".pdf"))
			_, statErr := os.Stat(doc.FilePath)
			Expect(statErr).NotTo(HaveOccurred())
			Expect(repo.documents).To(HaveLen(1))
		})

		It("rejects oversized files without leaving a blob behind", func() {
			t := createDraft(u1)

			_, err := svc.UploadDocument(ctx, u1, t.ID, transaction.UploadInput{
				DocumentType: "national_id",
				FileName:     "big.png",
				MimeType:     "image/png",
				Body:         bytes.NewReader(make([]byte, 2048)),
			})

			Expect(err).To(MatchError(transaction.ErrFileTooLarge))
			entries, readErr := os.ReadDir(uploadDir)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("rejects unsupported types and foreign uploads", func() {
			t := createDraft(u1)
			in := transaction.UploadInput{DocumentType: "photo", FileName: "a.gif", MimeType: "image/gif", Body: strings.NewReader("GIF")}

			_, err := svc.UploadDocument(ctx, u1, t.ID, in)
			Expect(err).To(MatchError(transaction.ErrUnsupportedDoc))

			in.MimeType = "image/png"
			_, err = svc.UploadDocument(ctx, u2, t.ID, in)
			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})

	Describe("Export", func() {
		It("writes a workbook with a header row and one row per transaction", func() {
			createDraft(u1)
			createDraft(u2)

			var buf bytes.Buffer
			Expect(svc.Export(ctx, admin, transaction.ListQuery{}, &buf)).To(Succeed())

			f, err := excelize.OpenReader(&buf)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			rows, err := f.GetRows("المعاملات")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0][0]).To(Equal("رقم التتبع"))
			Expect(rows[1][4]).To(Equal("مسودة"))
		})

		It("forbids citizens", func() {
			var buf bytes.Buffer
			Expect(svc.Export(ctx, u1, transaction.ListQuery{}, &buf)).To(MatchError(internal.ErrForbidden))
			Expect(buf.Len()).To(BeZero())
		})
	})
})
