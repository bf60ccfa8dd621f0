package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	"github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
	"github.com/oksasatya/go-ddd-private-messages/pkg/users"
)

// MessageRepository stores messages; participants are joined from the
// active user model table.
type MessageRepository struct {
	db    DB
	model users.Model
}

func NewMessageRepository(db DB, model users.Model) *MessageRepository {
	return &MessageRepository{db: db, model: model}
}

const messageColumns = `m.id, m.subject, m.body, m.sender_id, m.recipient_id, m.parent_id,
	m.sent_at, m.read_at, m.replied_at, m.sender_deleted_at, m.recipient_deleted_at`

func (r *MessageRepository) selectMessages() string {
	return fmt.Sprintf(`SELECT %s, %s, %s
		FROM messages m
		JOIN %[4]s su ON su.id = m.sender_id
		JOIN %[4]s ru ON ru.id = m.recipient_id`,
		messageColumns, userColumns(r.model, "su."), userColumns(r.model, "ru."), ident(r.model.Table))
}

func scanMessage(row pgx.Row) (*entity.Message, error) {
	m := &entity.Message{Sender: &entity.User{}, Recipient: &entity.User{}}
	s, rc := m.Sender, m.Recipient
	err := row.Scan(
		&m.ID, &m.Subject, &m.Body, &m.SenderID, &m.RecipientID, &m.ParentID,
		&m.SentAt, &m.ReadAt, &m.RepliedAt, &m.SenderDeletedAt, &m.RecipientDeletedAt,
		&s.ID, &s.Username, &s.Email, &s.Password, &s.Name, &s.CreatedAt, &s.UpdatedAt,
		&rc.ID, &rc.Username, &rc.Email, &rc.Password, &rc.Name, &rc.CreatedAt, &rc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) Create(ctx context.Context, m *entity.Message) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO messages (subject, body, sender_id, recipient_id, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, sent_at
	`, m.Subject, m.Body, m.SenderID, m.RecipientID, m.ParentID).Scan(&m.ID, &m.SentAt)
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, r.selectMessages()+" WHERE m.id = $1", id))
	if isNotFound(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Attachments, err = r.attachments(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func folderWhere(f repository.Folder) (string, error) {
	switch f {
	case repository.Inbox:
		return "m.recipient_id = $1 AND m.recipient_deleted_at IS NULL", nil
	case repository.Outbox:
		return "m.sender_id = $1 AND m.sender_deleted_at IS NULL", nil
	case repository.Trash:
		return "((m.recipient_id = $1 AND m.recipient_deleted_at IS NOT NULL) OR (m.sender_id = $1 AND m.sender_deleted_at IS NOT NULL))", nil
	}
	return "", fmt.Errorf("unknown folder %d", f)
}

func (r *MessageRepository) CountFolder(ctx context.Context, userID string, f repository.Folder) (int, error) {
	where, err := folderWhere(f)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRow(ctx, "SELECT count(*) FROM messages m WHERE "+where, userID).Scan(&n)
	return n, err
}

func (r *MessageRepository) ListFolder(ctx context.Context, userID string, f repository.Folder, offset, limit int) ([]*entity.Message, error) {
	where, err := folderWhere(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, r.selectMessages()+" WHERE "+where+" ORDER BY m.sent_at DESC, m.id DESC OFFSET $2 LIMIT $3", userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM messages
		WHERE recipient_id = $1 AND read_at IS NULL AND recipient_deleted_at IS NULL
	`, userID).Scan(&n)
	return n, err
}

func (r *MessageRepository) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Exec(ctx, q, args...)
	if isNotFound(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE messages SET read_at = $1 WHERE id = $2 AND read_at IS NULL`, at, id)
}

func (r *MessageRepository) MarkReplied(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE messages SET replied_at = $1 WHERE id = $2`, at, id)
}

// SetDeleted updates whichever side userID is on; a user that both sent and
// received the message gets both sides updated.
func (r *MessageRepository) SetDeleted(ctx context.Context, id, userID string, at *time.Time) error {
	return r.exec(ctx, `
		UPDATE messages SET
			sender_deleted_at = CASE WHEN sender_id = $2 THEN $3 ELSE sender_deleted_at END,
			recipient_deleted_at = CASE WHEN recipient_id = $2 THEN $3 ELSE recipient_deleted_at END
		WHERE id = $1 AND (sender_id = $2 OR recipient_id = $2)
	`, id, userID, at)
}

func (r *MessageRepository) AddAttachment(ctx context.Context, a *entity.Attachment) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO message_attachments (message_id, name, path, content_type, size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, a.MessageID, a.Name, a.Path, a.ContentType, a.Size).Scan(&a.ID, &a.CreatedAt)
}

func (r *MessageRepository) attachments(ctx context.Context, messageID string) ([]entity.Attachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, message_id, name, path, content_type, size, created_at
		FROM message_attachments WHERE message_id = $1 ORDER BY created_at
	`, messageID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Attachment, error) {
		var a entity.Attachment
		err := row.Scan(&a.ID, &a.MessageID, &a.Name, &a.Path, &a.ContentType, &a.Size, &a.CreatedAt)
		return a, err
	})
}

var _ repository.MessageRepository = (*MessageRepository)(nil)
