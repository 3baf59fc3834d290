package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"gorm.io/datatypes"
)

const (
	fieldRejectionReason = "rejection_reason"

	NotificationTypeTransaction = "transaction"
)

// Patch carries only the fields a caller supplied. An empty Status means no status change.
type Patch struct {
	Status            Status
	RejectionReason   null.String
	RejectionCategory null.String
	Notes             null.String
	InternalNotes     null.String
	AssignedTo        null.String
	Data              datatypes.JSON
}

func (p Patch) HasFieldChanges() bool {
	return p.RejectionReason.Valid || p.RejectionCategory.Valid || p.Notes.Valid ||
		p.InternalNotes.Valid || p.AssignedTo.Valid || p.Data != nil
}

func (p Patch) touchesRejection() bool {
	return p.RejectionReason.Valid || p.RejectionCategory.Valid
}

// Decision is the outcome of a permitted change: the next state plus the writes to perform.
type Decision struct {
	From        Status
	Transaction Transaction
	Effects     Effects
}

func (d *Decision) StatusChanged() bool {
	return d.From != d.Transaction.Status
}

type Effects struct {
	History       HistoryIntent
	Notifications []NotificationIntent
}

type HistoryIntent struct {
	Action    string
	OldStatus Status
	NewStatus Status
	Changes   map[string]interface{}
}

type NotificationIntent struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Link    string
	Status  Status
}

type actorRule func(t *Transaction, a user.Actor) bool

type edge struct {
	from     []Status
	to       Status
	actor    actorRule
	required []string
	stamp    func(t *Transaction, now time.Time)
	action   string
	notify   bool
}

func owningCitizen(t *Transaction, a user.Actor) bool {
	return a.Role == user.RoleCitizen && a.ID == t.CitizenID
}

func reviewer(_ *Transaction, a user.Actor) bool {
	return a.Role.IsStaff()
}

func canceller(t *Transaction, a user.Actor) bool {
	if a.Role == user.RoleAdmin {
		return true
	}
	return owningCitizen(t, a) && t.Status == StatusDraft
}

var nonTerminal = []Status{
	StatusDraft, StatusSubmitted, StatusUnderReview,
	StatusPendingDocuments, StatusRejected, StatusApproved,
}

var transitions = []edge{
	{
		from:   []Status{StatusDraft},
		to:     StatusSubmitted,
		actor:  owningCitizen,
		stamp:  func(t *Transaction, now time.Time) { setOnce(&t.SubmissionDate, now) },
		action: "تقديم المعاملة",
		notify: true,
	},
	{
		from:   []Status{StatusSubmitted},
		to:     StatusUnderReview,
		actor:  reviewer,
		stamp:  func(t *Transaction, now time.Time) { setOnce(&t.ReviewStartDate, now) },
		action: "بدء مراجعة المعاملة",
	},
	{
		from:   []Status{StatusUnderReview},
		to:     StatusPendingDocuments,
		actor:  reviewer,
		action: "طلب مستندات إضافية",
		notify: true,
	},
	{
		from:   []Status{StatusUnderReview, StatusPendingDocuments},
		to:     StatusApproved,
		actor:  reviewer,
		action: "الموافقة على المعاملة",
		notify: true,
	},
	{
		from:     []Status{StatusUnderReview, StatusPendingDocuments},
		to:       StatusRejected,
		actor:    reviewer,
		required: []string{fieldRejectionReason},
		stamp:    func(t *Transaction, now time.Time) { setOnce(&t.RejectionDate, now) },
		action:   "رفض المعاملة",
		notify:   true,
	},
	{
		from:   []Status{StatusApproved},
		to:     StatusCompleted,
		actor:  reviewer,
		stamp:  func(t *Transaction, now time.Time) { setOnce(&t.CompletionDate, now) },
		action: "إكمال المعاملة",
		notify: true,
	},
	{
		from:   nonTerminal,
		to:     StatusCancelled,
		actor:  canceller,
		action: "إلغاء المعاملة",
	},
}

func setOnce(field **time.Time, now time.Time) {
	if *field == nil {
		ts := now
		*field = &ts
	}
}

func findEdge(from, to Status) *edge {
	for i := range transitions {
		e := &transitions[i]
		if e.to != to {
			continue
		}
		for _, f := range e.from {
			if f == from {
				return e
			}
		}
	}
	return nil
}

// CanTransition reports whether (from, to) is an edge of the workflow, regardless of actor.
func CanTransition(from, to Status) bool {
	return findEdge(from, to) != nil
}

// ApplyTransition decides a requested change without performing any I/O.
// The status edge is checked first (existence, required fields, actor); patches without a
// status skip the edge table. On failure current is left untouched and no effects are returned.
func ApplyTransition(current Transaction, patch Patch, actor user.Actor, now time.Time) (*Decision, error) {
	if patch.Status == "" {
		return applyFieldPatch(current, patch, actor, now)
	}

	if !patch.Status.Valid() {
		return nil, internal.NewValidationFieldError("status", "حالة المعاملة غير صالحة", internal.ErrCodeValidationFailed)
	}

	e := findEdge(current.Status, patch.Status)
	if e == nil {
		return nil, internal.NewInvalidTransitionError(string(current.Status), string(patch.Status))
	}
	for _, field := range e.required {
		if field == fieldRejectionReason && strings.TrimSpace(patch.RejectionReason.String) == "" {
			return nil, internal.NewMissingFieldError(fieldRejectionReason)
		}
	}
	if !e.actor(&current, actor) {
		return nil, internal.ErrForbidden
	}
	if actor.Role == user.RoleCitizen && patch.HasFieldChanges() {
		return nil, internal.ErrForbidden
	}
	if e.to != StatusRejected && patch.touchesRejection() {
		return nil, internal.NewValidationFieldError(fieldRejectionReason, "سبب الرفض يحدد فقط عند رفض المعاملة", internal.ErrCodeValidationFailed)
	}

	next := current
	next.Status = e.to
	if e.stamp != nil {
		e.stamp(&next, now)
	}
	changes := applyFields(&next, patch)
	changes["status"] = string(e.to)
	next.UpdatedAt = now

	decision := &Decision{
		From:        current.Status,
		Transaction: next,
		Effects: Effects{
			History: HistoryIntent{
				Action:    e.action,
				OldStatus: current.Status,
				NewStatus: e.to,
				Changes:   changes,
			},
		},
	}
	if e.notify {
		decision.Effects.Notifications = []NotificationIntent{statusNotification(&next)}
	}
	return decision, nil
}

func applyFieldPatch(current Transaction, patch Patch, actor user.Actor, now time.Time) (*Decision, error) {
	if actor.Role == user.RoleCitizen {
		return nil, internal.ErrForbidden
	}
	if !patch.HasFieldChanges() {
		return nil, internal.NewValidationError("لا يوجد حقول للتحديث", internal.ErrCodeValidationFailed)
	}
	if patch.touchesRejection() && current.Status != StatusRejected {
		return nil, internal.NewValidationFieldError(fieldRejectionReason, "سبب الرفض يحدد فقط عند رفض المعاملة", internal.ErrCodeValidationFailed)
	}

	next := current
	changes := applyFields(&next, patch)
	next.UpdatedAt = now

	return &Decision{
		From:        current.Status,
		Transaction: next,
		Effects: Effects{
			History: HistoryIntent{
				Action:    "تحديث المعاملة",
				OldStatus: current.Status,
				NewStatus: current.Status,
				Changes:   changes,
			},
		},
	}, nil
}

// applyFields writes supplied patch fields onto t and returns the change snapshot.
func applyFields(t *Transaction, patch Patch) map[string]interface{} {
	changes := make(map[string]interface{})
	if patch.RejectionReason.Valid {
		t.RejectionReason = patch.RejectionReason.Ptr()
		changes["rejection_reason"] = patch.RejectionReason.String
	}
	if patch.RejectionCategory.Valid {
		t.RejectionCategory = patch.RejectionCategory.Ptr()
		changes["rejection_category"] = patch.RejectionCategory.String
	}
	if patch.Notes.Valid {
		t.Notes = patch.Notes.Ptr()
		changes["notes"] = patch.Notes.String
	}
	if patch.InternalNotes.Valid {
		t.InternalNotes = patch.InternalNotes.Ptr()
		changes["internal_notes"] = patch.InternalNotes.String
	}
	if patch.AssignedTo.Valid {
		t.AssignedTo = patch.AssignedTo.Ptr()
		changes["assigned_to"] = patch.AssignedTo.String
	}
	if patch.Data != nil {
		t.Data = patch.Data
		changes["data"] = patch.Data
	}
	return changes
}

func statusNotification(t *Transaction) NotificationIntent {
	n := NotificationIntent{
		UserID: t.CitizenID,
		Type:   NotificationTypeTransaction,
		Link:   Link(t.ID),
		Status: t.Status,
	}
	if t.Status == StatusSubmitted {
		n.Title = "تم تقديم المعاملة"
		n.Message = fmt.Sprintf("تم تقديم معاملتك برقم %s", t.TrackingNumber)
		return n
	}
	n.Title = "تحديث حالة المعاملة"
	n.Message = fmt.Sprintf("تم تحديث حالة معاملتك رقم %s إلى: %s", t.TrackingNumber, t.Status.Label())
	return n
}

// Link is the client route of a transaction.
func Link(id string) string {
	return "/transactions/" + id
}

// Columns lists the transaction columns the decision writes. Status changes also carry the
// set-once timestamps; field updates touch only what the patch supplied.
func (d *Decision) Columns() map[string]interface{} {
	t := d.Transaction
	cols := map[string]interface{}{"updated_at": t.UpdatedAt}
	if d.StatusChanged() {
		cols["status"] = string(t.Status)
		cols["submission_date"] = t.SubmissionDate
		cols["review_start_date"] = t.ReviewStartDate
		cols["completion_date"] = t.CompletionDate
		cols["rejection_date"] = t.RejectionDate
	}
	for field := range d.Effects.History.Changes {
		switch field {
		case "rejection_reason":
			cols[field] = t.RejectionReason
		case "rejection_category":
			cols[field] = t.RejectionCategory
		case "notes":
			cols[field] = t.Notes
		case "internal_notes":
			cols[field] = t.InternalNotes
		case "assigned_to":
			cols[field] = t.AssignedTo
		case "data":
			cols[field] = t.Data
		}
	}
	return cols
}
