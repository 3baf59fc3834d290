package events

const (
	EventTypeTransactionCreated       = "transaction.created"
	EventTypeTransactionSubmitted     = "transaction.submitted"
	EventTypeTransactionStatusChanged = "transaction.status_changed"
	EventTypeTransactionUpdated       = "transaction.updated"
	EventTypeUserRegistered           = "user.registered"
)

// Notice is an in-app notification the dispatcher should deliver.
type Notice struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

type TransactionEvent struct {
	BaseEvent
	TransactionID     string   `json:"transaction_id"`
	TrackingNumber    string   `json:"tracking_number"`
	TransactionTypeID int64    `json:"transaction_type_id"`
	CitizenID         string   `json:"citizen_id"`
	ActorID           string   `json:"actor_id"`
	OldStatus         string   `json:"old_status,omitempty"`
	NewStatus         string   `json:"new_status"`
	RejectionReason   string   `json:"rejection_reason,omitempty"`
	Notices           []Notice `json:"notices,omitempty"`
}

// StatusChanged reports whether the event carries a status edge.
func (e *TransactionEvent) StatusChanged() bool {
	return e.OldStatus != "" && e.OldStatus != e.NewStatus
}

func NewTransactionEvent(eventType, transactionID, trackingNumber, citizenID, actorID, oldStatus, newStatus string, notices []Notice) *TransactionEvent {
	return &TransactionEvent{
		BaseEvent:      newBaseEvent(eventType),
		TransactionID:  transactionID,
		TrackingNumber: trackingNumber,
		CitizenID:      citizenID,
		ActorID:        actorID,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		Notices:        notices,
	}
}

type UserRegisteredEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func NewUserRegisteredEvent(userID, email, fullName string) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseEvent: newBaseEvent(EventTypeUserRegistered),
		UserID:    userID,
		Email:     email,
		FullName:  fullName,
	}
}
