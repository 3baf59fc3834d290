package notification

import (
	"context"
	"time"

	notificationDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/notification"
)

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      *string    `json:"link,omitempty"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Filter scopes an inbox query. IsRead nil means both.
type Filter struct {
	UserID string
	IsRead *bool
	Limit  int
	Offset int
}

type RepositoryAPI interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, f Filter) ([]*Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

// Contact is what the dispatcher needs to address a user.
type Contact struct {
	Email    string
	FullName string
}

// Directory resolves display data the events do not carry.
type Directory interface {
	Contact(ctx context.Context, userID string) (*Contact, error)
	TransactionTypeName(ctx context.Context, id int64) (string, error)
}

// EmailQueue accepts outbound mail. Delivery happens later.
type EmailQueue interface {
	Enqueue(ctx context.Context, to, subject, htmlBody string) error
}

func ToDataModel(n *Notification) *notificationDatamodel.Notification {
	return &notificationDatamodel.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func FromDataModel(n *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
