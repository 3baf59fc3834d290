package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/auth"
	"github.com/frahmantamala/muamalati/internal/core/common/validation"
	"github.com/frahmantamala/muamalati/internal/core/events"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/pkg/metrics"
)

var (
	ErrFileTooLarge   = internal.NewValidationFieldError("file", "حجم الملف يتجاوز الحد المسموح", internal.ErrCodeValidationFailed)
	ErrUnsupportedDoc = internal.NewValidationFieldError("file", "نوع الملف غير مدعوم", internal.ErrCodeValidationFailed)
)

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

type RepositoryAPI interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	GetDetail(ctx context.Context, id string) (*Detail, error)
	List(ctx context.Context, f Filter) ([]*Transaction, int64, error)
	// ApplyDecision writes the decision and its history row in one database transaction.
	// When the status changes, the row must still be in expected; otherwise it fails with InvalidTransition.
	ApplyDecision(ctx context.Context, id string, expected Status, columns map[string]interface{}, h *History) error
	// Delete removes the transaction with its history and documents and returns the stored file paths.
	Delete(ctx context.Context, id string) ([]string, error)
	AddDocument(ctx context.Context, d *Document) error
}

type ServiceAPI interface {
	Create(ctx context.Context, actor user.Actor, dto CreateDTO) (*Transaction, error)
	Get(ctx context.Context, actor user.Actor, id string) (*Detail, error)
	List(ctx context.Context, actor user.Actor, q ListQuery) ([]*Transaction, int64, error)
	Submit(ctx context.Context, actor user.Actor, id string) (*Transaction, error)
	Cancel(ctx context.Context, actor user.Actor, id string) (*Transaction, error)
	Update(ctx context.Context, actor user.Actor, id string, dto UpdateDTO) (*Transaction, error)
	Delete(ctx context.Context, actor user.Actor, id string) error
	UploadDocument(ctx context.Context, actor user.Actor, id string, in UploadInput) (*Document, error)
	Export(ctx context.Context, actor user.Actor, q ListQuery, w io.Writer) error
}

type UploadInput struct {
	DocumentType string
	FileName     string
	MimeType     string
	Body         io.Reader
}

type Service struct {
	repo        RepositoryAPI
	publisher   events.Publisher
	storage     FileStorage
	maxFileSize int64
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo RepositoryAPI, publisher events.Publisher, storage FileStorage, maxFileSize int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		publisher:   publisher,
		storage:     storage,
		maxFileSize: maxFileSize,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor user.Actor, dto CreateDTO) (*Transaction, error) {
	if err := auth.Authorize(actor, auth.ActionCreate, auth.Resource{}); err != nil {
		return nil, err
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	now := s.now()
	t := &Transaction{
		ID:                uuid.New().String(),
		TrackingNumber:    NewTrackingNumber(now),
		CitizenID:         actor.ID,
		TransactionTypeID: dto.TransactionTypeID,
		DepartmentID:      dto.DepartmentID,
		Status:            StatusDraft,
		Priority:          PriorityNormal,
		IsPriorityService: dto.IsPriorityService,
		Notes:             trimmed(dto.Notes).Ptr(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if dto.Priority != "" {
		t.Priority = Priority(dto.Priority)
	}
	if len(dto.Data) > 0 && string(dto.Data) != "null" {
		if !json.Valid(dto.Data) {
			return nil, internal.NewValidationFieldError("data", "بيانات المعاملة غير صالحة", internal.ErrCodeValidationFailed)
		}
		t.Data = datatypes.JSON(dto.Data)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		s.logger.Error("failed to create transaction", "error", err, "citizen_id", actor.ID)
		if appErr := internal.TranslateDBError(err); appErr != nil && appErr.Code == internal.ErrCodeInvalidReference {
			return nil, appErr
		}
		return nil, internal.NewInternalError("حدث خطأ أثناء إنشاء المعاملة", err)
	}

	created := events.NewTransactionEvent(
		events.EventTypeTransactionCreated, t.ID, t.TrackingNumber, t.CitizenID, actor.ID, "", string(t.Status),
		[]events.Notice{{
			UserID:  t.CitizenID,
			Type:    NotificationTypeTransaction,
			Title:   "معاملة جديدة",
			Message: fmt.Sprintf("تم إنشاء معاملة جديدة برقم %s", t.TrackingNumber),
			Link:    Link(t.ID),
		}},
	)
	created.TransactionTypeID = t.TransactionTypeID
	s.publish(ctx, created)

	s.logger.Info("transaction created", "transaction_id", t.ID, "tracking_number", t.TrackingNumber)
	return t, nil
}

// Get hides other citizens' transactions behind NotFound.
func (s *Service) Get(ctx context.Context, actor user.Actor, id string) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.ActionRead, resourceOf(d.Transaction)); err != nil {
		if actor.Role == user.RoleCitizen {
			return nil, internal.ErrTransactionNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, actor user.Actor, q ListQuery) ([]*Transaction, int64, error) {
	if err := auth.Authorize(actor, auth.ActionList, auth.Resource{}); err != nil {
		return nil, 0, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, internal.NewValidationFieldError("status", "حالة المعاملة غير صالحة", internal.ErrCodeValidationFailed)
	}
	return s.repo.List(ctx, scopeFilter(actor, q))
}

// scopeFilter applies role visibility: citizens see their own, employees their department or assignments.
func scopeFilter(actor user.Actor, q ListQuery) Filter {
	f := Filter{
		Status:       q.Status,
		DepartmentID: q.DepartmentID,
		Limit:        q.Limit,
		Offset:       q.Offset(),
	}
	switch actor.Role {
	case user.RoleCitizen:
		f.CitizenID = actor.ID
	case user.RoleEmployee:
		f.ScopeDepartmentID = actor.DepartmentID
		f.ScopeAssignedTo = actor.ID
	}
	return f
}

func (s *Service) Submit(ctx context.Context, actor user.Actor, id string) (*Transaction, error) {
	return s.transition(ctx, actor, id, auth.ActionSubmit, Patch{Status: StatusSubmitted})
}

func (s *Service) Cancel(ctx context.Context, actor user.Actor, id string) (*Transaction, error) {
	return s.transition(ctx, actor, id, auth.ActionCancel, Patch{Status: StatusCancelled})
}

func (s *Service) Update(ctx context.Context, actor user.Actor, id string, dto UpdateDTO) (*Transaction, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if len(dto.Data) > 0 && !json.Valid(dto.Data) {
		return nil, internal.NewValidationFieldError("data", "بيانات المعاملة غير صالحة", internal.ErrCodeValidationFailed)
	}
	return s.transition(ctx, actor, id, auth.ActionUpdate, dto.ToPatch())
}

// transition runs gate, engine and repository in that order, then publishes once the write committed.
func (s *Service) transition(ctx context.Context, actor user.Actor, id string, action auth.Action, patch Patch) (*Transaction, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := auth.Authorize(actor, action, resourceOf(current)); err != nil {
		s.logger.Warn("transaction action denied", "transaction_id", id, "user_id", actor.ID, "role", actor.Role, "action", action)
		return nil, err
	}

	decision, err := ApplyTransition(*current, patch, actor, s.now())
	if err != nil {
		if patch.Status != "" {
			metrics.RecordTransition(string(current.Status), string(patch.Status), outcomeOf(err))
		}
		return nil, err
	}

	h, err := historyFromDecision(decision, actor.ID)
	if err != nil {
		s.logger.Error("failed to encode history changes", "error", err, "transaction_id", id)
		return nil, internal.NewInternalError("حدث خطأ أثناء تحديث المعاملة", err)
	}
	if err := s.repo.ApplyDecision(ctx, id, decision.From, decision.Columns(), h); err != nil {
		if decision.StatusChanged() {
			metrics.RecordTransition(string(decision.From), string(decision.Transaction.Status), outcomeOf(err))
		}
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to persist transaction decision", "error", err, "transaction_id", id)
		return nil, internal.NewInternalError("حدث خطأ أثناء تحديث المعاملة", err)
	}

	next := decision.Transaction
	if decision.StatusChanged() {
		metrics.RecordTransition(string(decision.From), string(next.Status), "ok")
	}
	s.publish(ctx, eventFromDecision(decision, actor.ID))

	s.logger.Info("transaction updated",
		"transaction_id", id,
		"from", decision.From,
		"to", next.Status,
		"user_id", actor.ID)
	return &next, nil
}

func (s *Service) Delete(ctx context.Context, actor user.Actor, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(actor, auth.ActionDelete, resourceOf(current)); err != nil {
		return err
	}
	paths, err := s.repo.Delete(ctx, id)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewInternalError("حدث خطأ أثناء حذف المعاملة", err)
	}
	for _, path := range paths {
		if rmErr := s.storage.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Error("failed to remove document file", "error", rmErr, "path", path, "transaction_id", id)
		}
	}
	s.logger.Info("transaction deleted", "transaction_id", id, "user_id", actor.ID, "files", len(paths))
	return nil
}

// UploadDocument attaches a file to a transaction the citizen owns while it still accepts documents.
func (s *Service) UploadDocument(ctx context.Context, actor user.Actor, id string, in UploadInput) (*Document, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != user.RoleCitizen || current.CitizenID != actor.ID {
		return nil, internal.ErrForbidden
	}
	if current.Status.IsTerminal() || current.Status == StatusRejected || current.Status == StatusApproved {
		return nil, internal.NewValidationError("لا يمكن إرفاق مستندات بهذه المعاملة", internal.ErrCodeValidationFailed)
	}
	if in.DocumentType == "" {
		return nil, internal.NewValidationFieldError("document_type", "نوع المستند مطلوب", internal.ErrCodeValidationFailed)
	}
	if !allowedMimeTypes[in.MimeType] {
		return nil, ErrUnsupportedDoc
	}

	path, size, err := s.storage.Save(ctx, in.FileName, in.Body, s.maxFileSize)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, internal.NewInternalError("حدث خطأ أثناء رفع الملف", err)
	}

	doc := &Document{
		ID:            uuid.New().String(),
		TransactionID: id,
		DocumentType:  in.DocumentType,
		FileName:      in.FileName,
		FilePath:      path,
		FileSize:      size,
		MimeType:      in.MimeType,
		UploadedBy:    actor.ID,
		CreatedAt:     s.now(),
	}
	if err := s.repo.AddDocument(ctx, doc); err != nil {
		if rmErr := s.storage.Remove(path); rmErr != nil {
			s.logger.Error("failed to remove orphaned upload", "error", rmErr, "path", path)
		}
		return nil, internal.NewInternalError("حدث خطأ أثناء رفع الملف", err)
	}
	return doc, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", e.EventType())
	}
}

func resourceOf(t *Transaction) auth.Resource {
	return auth.Resource{OwnerID: t.CitizenID, Status: string(t.Status)}
}

func historyFromDecision(d *Decision, userID string) (*History, error) {
	old := d.Effects.History.OldStatus
	next := d.Effects.History.NewStatus
	changes, err := json.Marshal(d.Effects.History.Changes)
	if err != nil {
		return nil, fmt.Errorf("encode changes: %w", err)
	}
	return &History{
		ID:            uuid.New().String(),
		TransactionID: d.Transaction.ID,
		UserID:        userID,
		Action:        d.Effects.History.Action,
		OldStatus:     &old,
		NewStatus:     &next,
		Changes:       datatypes.JSON(changes),
		CreatedAt:     d.Transaction.UpdatedAt,
	}, nil
}

func eventFromDecision(d *Decision, actorID string) events.Event {
	t := d.Transaction
	eventType := events.EventTypeTransactionUpdated
	switch {
	case d.StatusChanged() && t.Status == StatusSubmitted:
		eventType = events.EventTypeTransactionSubmitted
	case d.StatusChanged():
		eventType = events.EventTypeTransactionStatusChanged
	}

	notices := make([]events.Notice, 0, len(d.Effects.Notifications))
	for _, n := range d.Effects.Notifications {
		notices = append(notices, events.Notice{
			UserID:  n.UserID,
			Type:    n.Type,
			Title:   n.Title,
			Message: n.Message,
			Link:    n.Link,
		})
	}
	e := events.NewTransactionEvent(eventType, t.ID, t.TrackingNumber, t.CitizenID, actorID, string(d.From), string(t.Status), notices)
	e.TransactionTypeID = t.TransactionTypeID
	if t.RejectionReason != nil {
		e.RejectionReason = *t.RejectionReason
	}
	return e
}

func outcomeOf(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return string(appErr.Code)
	}
	return "error"
}
