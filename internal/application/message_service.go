package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
	"github.com/oksasatya/go-ddd-private-messages/internal/signals"
	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
	"github.com/oksasatya/go-ddd-private-messages/pkg/messaging"
	"github.com/oksasatya/go-ddd-private-messages/pkg/pagination"
	"github.com/oksasatya/go-ddd-private-messages/pkg/storage"
)

var (
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotParticipant     = errors.New("not a participant of this message")
	ErrUnknownRecipient   = errors.New("unknown recipient")
	ErrNoRecipients       = errors.New("at least one recipient is required")
	ErrStorageDisabled    = errors.New("attachment storage is not configured")
	ErrAttachmentTooLarge = errors.New("attachment too large")
)

// MessageService implements the mailbox operations of a user.
type MessageService struct {
	Messages repo.MessageRepository
	Users    repo.UserRepository
	Storage  storage.Backend // nil disables attachments
	Signals  *signals.Dispatcher
	Printer  *messaging.Printer
	ES       *elasticsearch.Client
	ESIndex  string
	Logger   *logrus.Logger

	PageLength         int
	MaxAttachmentBytes int64
	Now                func() time.Time
}

func NewMessageService(messages repo.MessageRepository, users repo.UserRepository, backend storage.Backend, sig *signals.Dispatcher, printer *messaging.Printer, es *elasticsearch.Client, esIndex string, logger *logrus.Logger) *MessageService {
	return &MessageService{
		Messages:   messages,
		Users:      users,
		Storage:    backend,
		Signals:    sig,
		Printer:    printer,
		ES:         es,
		ESIndex:    esIndex,
		Logger:     logger,
		PageLength: pagination.Disabled,
		Now:        time.Now,
	}
}

func (s *MessageService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *MessageService) printer() *messaging.Printer {
	if s.Printer == nil {
		return messaging.NewPrinter("")
	}
	return s.Printer
}

type ComposeInput struct {
	Recipients []string // usernames of the active user model
	Subject    string
	Body       string
	ParentID   string
}

// Compose sends one message per recipient. An unknown recipient fails the
// call before anything is written. Inserts are not transactional: when one
// fails, the messages returned alongside the error were already delivered.
// When ParentID is set the parent is marked replied.
func (s *MessageService) Compose(ctx context.Context, senderID string, in ComposeInput) ([]*entity.Message, error) {
	if len(in.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	sender, err := s.Users.GetByID(ctx, senderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	recipients := make([]*entity.User, 0, len(in.Recipients))
	seen := map[string]bool{}
	for _, name := range in.Recipients {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		u, err := s.Users.GetByUsername(ctx, name)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRecipient, name)
		}
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, u)
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	var parent *entity.Message
	if in.ParentID != "" {
		parent, err = s.load(ctx, in.ParentID, senderID)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*entity.Message, 0, len(recipients))
	for _, r := range recipients {
		m := &entity.Message{
			Subject:     in.Subject,
			Body:        in.Body,
			SenderID:    sender.ID,
			RecipientID: r.ID,
			Sender:      sender,
			Recipient:   r,
		}
		if parent != nil {
			m.ParentID = &parent.ID
		}
		if err := s.Messages.Create(ctx, m); err != nil {
			return out, err
		}
		out = append(out, m)
		s.index(ctx, m)
		s.Signals.Send(ctx, signals.PostSave{Message: m, Created: true})
	}

	if parent != nil {
		at := s.now()
		if err := s.Messages.MarkReplied(ctx, parent.ID, at); err != nil {
			return out, err
		}
		parent.RepliedAt = &at
		s.Signals.Send(ctx, signals.PostSave{Message: parent})
	}
	return out, nil
}

// ReplyDraft is the prefilled form for answering a received message.
type ReplyDraft struct {
	ParentID  string `json:"parent_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// ReplyDraft quotes the parent and re-prefixes its subject. Only the
// recipient of the parent may reply to it.
func (s *MessageService) ReplyDraft(ctx context.Context, userID, parentID string) (*ReplyDraft, error) {
	parent, err := s.load(ctx, parentID, userID)
	if err != nil {
		return nil, err
	}
	if parent.RecipientID != userID {
		return nil, ErrNotParticipant
	}
	p := s.printer()
	return &ReplyDraft{
		ParentID:  parent.ID,
		Recipient: parent.Sender.DisplayName(),
		Subject:   p.FormatSubject(parent.Subject),
		Body:      p.FormatQuote(parent.Sender.DisplayName(), parent.Body),
	}, nil
}

type folderQuery struct {
	repo   repo.MessageRepository
	userID string
	folder repo.Folder
}

func (q folderQuery) Count(ctx context.Context) (int, error) {
	return q.repo.CountFolder(ctx, q.userID, q.folder)
}

func (q folderQuery) Slice(ctx context.Context, offset, limit int) ([]*entity.Message, error) {
	return q.repo.ListFolder(ctx, q.userID, q.folder, offset, limit)
}

// Folder lists a folder newest first, one page at a time.
func (s *MessageService) Folder(ctx context.Context, userID string, f repo.Folder, page string) (pagination.Page[*entity.Message], error) {
	return pagination.PaginateQuery[*entity.Message](ctx, folderQuery{s.Messages, userID, f}, s.PageLength, page)
}

func (s *MessageService) Inbox(ctx context.Context, userID, page string) (pagination.Page[*entity.Message], error) {
	return s.Folder(ctx, userID, repo.Inbox, page)
}

func (s *MessageService) Outbox(ctx context.Context, userID, page string) (pagination.Page[*entity.Message], error) {
	return s.Folder(ctx, userID, repo.Outbox, page)
}

func (s *MessageService) Trash(ctx context.Context, userID, page string) (pagination.Page[*entity.Message], error) {
	return s.Folder(ctx, userID, repo.Trash, page)
}

func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.Messages.CountUnread(ctx, userID)
}

// load fetches a message visible to userID.
func (s *MessageService) load(ctx context.Context, id, userID string) (*entity.Message, error) {
	m, err := s.Messages.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return m, nil
}

// View returns a message and marks it read when the recipient opens it.
func (s *MessageService) View(ctx context.Context, userID, id string) (*entity.Message, error) {
	m, err := s.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if m.RecipientID == userID && m.IsNew() {
		at := s.now()
		if err := s.Messages.MarkRead(ctx, m.ID, at); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		m.ReadAt = &at
		s.Signals.Send(ctx, signals.PostSave{Message: m})
	}
	return m, nil
}

// Delete moves the message to userID's trash. The other participant is
// unaffected.
func (s *MessageService) Delete(ctx context.Context, userID, id string) error {
	at := s.now()
	return s.setDeleted(ctx, userID, id, &at)
}

// Undelete restores a message from userID's trash.
func (s *MessageService) Undelete(ctx context.Context, userID, id string) error {
	return s.setDeleted(ctx, userID, id, nil)
}

func (s *MessageService) setDeleted(ctx context.Context, userID, id string, at *time.Time) error {
	m, err := s.load(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.Messages.SetDeleted(ctx, m.ID, userID, at); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if m.SenderID == userID {
		m.SenderDeletedAt = at
	}
	if m.RecipientID == userID {
		m.RecipientDeletedAt = at
	}
	s.Signals.Send(ctx, signals.PostSave{Message: m})
	return nil
}

// Attach stores a file for a message the user sent.
func (s *MessageService) Attach(ctx context.Context, userID, messageID, filename, contentType string, r io.Reader) (*entity.Attachment, error) {
	if s.Storage == nil {
		return nil, ErrStorageDisabled
	}
	m, err := s.load(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if m.SenderID != userID {
		return nil, ErrNotParticipant
	}

	limit := s.MaxAttachmentBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrAttachmentTooLarge
	}

	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	object := path.Join("attachments", m.ID, uuid.NewString()+strings.ToLower(path.Ext(base)))
	stored, err := s.Storage.Save(ctx, object, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	a := &entity.Attachment{
		MessageID:   m.ID,
		Name:        base,
		Path:        stored,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if err := s.Messages.AddAttachment(ctx, a); err != nil {
		if dErr := s.Storage.Delete(ctx, stored); dErr != nil {
			helpers.LogError(s.Logger, "orphaned attachment", dErr, logrus.Fields{"path": stored})
		}
		return nil, err
	}
	return a, nil
}

// AttachmentURL is where clients download an attachment.
func (s *MessageService) AttachmentURL(a entity.Attachment) string {
	if s.Storage == nil {
		return ""
	}
	return s.Storage.URL(a.Path)
}

// MessagesIndexBody creates the search index. Participant ids carry a
// keyword subfield, the search filter matches on it.
const MessagesIndexBody = `{
  "mappings": {
    "properties": {
      "subject":      {"type": "text"},
      "body":         {"type": "text"},
      "sender":       {"type": "text"},
      "recipient":    {"type": "text"},
      "sender_id":    {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "recipient_id": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "sent_at":      {"type": "date"}
    }
  }
}`

// SearchHit is a message document in the search index.
type SearchHit struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Sender      string    `json:"sender"`
	Recipient   string    `json:"recipient"`
	SentAt      time.Time `json:"sent_at"`
}

func (s *MessageService) index(ctx context.Context, m *entity.Message) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := SearchHit{
		ID:          m.ID,
		Subject:     m.Subject,
		Body:        m.Body,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Sender:      m.Sender.DisplayName(),
		Recipient:   m.Recipient.DisplayName(),
		SentAt:      m.SentAt,
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := helpers.ESIndexJSON(c, s.ES, s.ESIndex, m.ID, doc); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("message_id", m.ID).Warn("es index failed")
	}
}

// searchQuery matches q on subject and body among messages userID took part in.
func searchQuery(userID, q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"subject^2", "body"},
					},
				},
				"filter": map[string]any{
					"bool": map[string]any{
						"should": []any{
							map[string]any{"term": map[string]any{"sender_id.keyword": userID}},
							map[string]any{"term": map[string]any{"recipient_id.keyword": userID}},
						},
						"minimum_should_match": 1,
					},
				},
			},
		},
		"sort": []any{map[string]any{"sent_at": "desc"}, "_score"},
		"size": size,
	}
}

// Search performs a full text search over the user's messages. Without
// Elasticsearch it returns no hits.
func (s *MessageService) Search(ctx context.Context, userID, q string, size int) ([]SearchHit, error) {
	q = strings.TrimSpace(q)
	if s.ES == nil || s.ESIndex == "" || q == "" {
		return []SearchHit{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	b, err := json.Marshal(searchQuery(userID, q, size))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESIndex), s.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source SearchHit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
