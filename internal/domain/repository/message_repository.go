package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
)

// Folder selects a per-user view of messages.
type Folder int

const (
	Inbox  Folder = iota // received, not deleted by the recipient
	Outbox               // sent, not deleted by the sender
	Trash                // deleted by the user on either side
)

func (f Folder) String() string {
	switch f {
	case Inbox:
		return "inbox"
	case Outbox:
		return "outbox"
	case Trash:
		return "trash"
	}
	return "unknown"
}

// MessageRepository defines persistence for messages and attachments.
type MessageRepository interface {
	Create(ctx context.Context, m *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	CountFolder(ctx context.Context, userID string, f Folder) (int, error)
	ListFolder(ctx context.Context, userID string, f Folder, offset, limit int) ([]*entity.Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkReplied(ctx context.Context, id string, at time.Time) error
	// SetDeleted sets (at != nil) or clears the deletion mark of userID's side.
	SetDeleted(ctx context.Context, id, userID string, at *time.Time) error
	AddAttachment(ctx context.Context, a *entity.Attachment) error
}
