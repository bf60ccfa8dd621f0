package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-private-messages/internal/application"
	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	"github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
	"github.com/oksasatya/go-ddd-private-messages/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-private-messages/pkg/pagination"
	"github.com/oksasatya/go-ddd-private-messages/pkg/response"
	"github.com/oksasatya/go-ddd-private-messages/pkg/validation"
)

// MessageService is the part of application.MessageService the handler uses.
type MessageService interface {
	Compose(ctx context.Context, senderID string, in application.ComposeInput) ([]*entity.Message, error)
	ReplyDraft(ctx context.Context, userID, parentID string) (*application.ReplyDraft, error)
	Folder(ctx context.Context, userID string, f repository.Folder, page string) (pagination.Page[*entity.Message], error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	View(ctx context.Context, userID, id string) (*entity.Message, error)
	Delete(ctx context.Context, userID, id string) error
	Undelete(ctx context.Context, userID, id string) error
	Attach(ctx context.Context, userID, messageID, filename, contentType string, r io.Reader) (*entity.Attachment, error)
	AttachmentURL(a entity.Attachment) string
	Search(ctx context.Context, userID, q string, size int) ([]application.SearchHit, error)
}

type MessageHandler struct {
	Svc    MessageService
	Logger *logrus.Logger
}

func NewMessageHandler(svc MessageService, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{Svc: svc, Logger: logger}
}

type attachmentDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type messageDTO struct {
	ID          string          `json:"id"`
	Subject     string          `json:"subject"`
	Body        string          `json:"body"`
	Sender      string          `json:"sender"`
	Recipient   string          `json:"recipient"`
	ParentID    *string         `json:"parent_id,omitempty"`
	SentAt      time.Time       `json:"sent_at"`
	ReadAt      *time.Time      `json:"read_at,omitempty"`
	RepliedAt   *time.Time      `json:"replied_at,omitempty"`
	New         bool            `json:"new"`
	Replied     bool            `json:"replied"`
	Attachments []attachmentDTO `json:"attachments,omitempty"`
}

func (h *MessageHandler) toDTO(m *entity.Message) messageDTO {
	d := messageDTO{
		ID:        m.ID,
		Subject:   m.Subject,
		Body:      m.Body,
		Sender:    m.Sender.DisplayName(),
		Recipient: m.Recipient.DisplayName(),
		ParentID:  m.ParentID,
		SentAt:    m.SentAt,
		ReadAt:    m.ReadAt,
		RepliedAt: m.RepliedAt,
		New:       m.IsNew(),
		Replied:   m.IsReplied(),
	}
	for _, a := range m.Attachments {
		d.Attachments = append(d.Attachments, h.attachmentDTO(a))
	}
	return d
}

func (h *MessageHandler) attachmentDTO(a entity.Attachment) attachmentDTO {
	return attachmentDTO{ID: a.ID, Name: a.Name, URL: h.Svc.AttachmentURL(a), ContentType: a.ContentType, Size: a.Size}
}

// fail maps service errors onto HTTP statuses. Unknown errors are logged
// and reported as 500.
func (h *MessageHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrMessageNotFound), errors.Is(err, application.ErrNotParticipant):
		response.Error[any](c, http.StatusNotFound, "message not found", nil)
	case errors.Is(err, application.ErrUnknownRecipient), errors.Is(err, application.ErrNoRecipients):
		response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, application.ErrAttachmentTooLarge):
		response.Error[any](c, http.StatusRequestEntityTooLarge, err.Error(), nil)
	case errors.Is(err, application.ErrStorageDisabled):
		response.Error[any](c, http.StatusNotImplemented, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("path", c.FullPath()).Error("message request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}

func userID(c *gin.Context) string { return c.GetString(middleware.CtxUserIDKey) }

// messageID returns the :id route parameter. Message ids are UUIDs, so
// anything else cannot name a message.
func messageID(c *gin.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", application.ErrMessageNotFound
	}
	return id, nil
}

// Folder lists inbox, outbox or trash honoring the ?page= parameter.
func (h *MessageHandler) Folder(f repository.Folder) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := h.Svc.Folder(c.Request.Context(), userID(c), f, pagination.FromRequest(c))
		if err != nil {
			h.fail(c, err)
			return
		}
		items := make([]messageDTO, 0, len(page.Items))
		for _, m := range page.Items {
			items = append(items, h.toDTO(m))
		}
		response.Success(c, http.StatusOK, items, f.String(), gin.H{
			"page":         page.Number,
			"num_pages":    page.NumPages,
			"count":        page.Count,
			"paginated":    page.Paginated,
			"has_next":     page.HasNext(),
			"has_previous": page.HasPrevious(),
			"start_index":  page.StartIndex(),
		})
	}
}

func (h *MessageHandler) Unread(c *gin.Context) {
	n, err := h.Svc.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": n}, "unread count", nil)
}

type composeRequest struct {
	Recipients []string `json:"recipients" binding:"required,recipients,dive,required"`
	Subject    string   `json:"subject" binding:"required,subject"`
	Body       string   `json:"body" binding:"required"`
	ParentID   string   `json:"parent_id" binding:"omitempty,uuid"`
}

func (h *MessageHandler) Compose(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ms, err := h.Svc.Compose(c.Request.Context(), userID(c), application.ComposeInput{
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Body:       req.Body,
		ParentID:   req.ParentID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]messageDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, h.toDTO(m))
	}
	response.Success(c, http.StatusCreated, out, "message sent", nil)
}

func (h *MessageHandler) View(c *gin.Context) {
	id, err := messageID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	m, err := h.Svc.View(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.toDTO(m), "message", nil)
}

func (h *MessageHandler) Reply(c *gin.Context) {
	id, err := messageID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := h.Svc.ReplyDraft(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, d, "reply draft", nil)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	id, err := messageID(c)
	if err == nil {
		err = h.Svc.Delete(c.Request.Context(), userID(c), id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "message moved to trash", nil)
}

func (h *MessageHandler) Undelete(c *gin.Context) {
	id, err := messageID(c)
	if err == nil {
		err = h.Svc.Undelete(c.Request.Context(), userID(c), id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": false}, "message restored", nil)
}

// Attach expects a multipart form with a "file" field.
func (h *MessageHandler) Attach(c *gin.Context) {
	id, err := messageID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"file": "is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	a, err := h.Svc.Attach(c.Request.Context(), userID(c), id, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, h.attachmentDTO(*a), "attachment stored", nil)
}

func (h *MessageHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	hits, err := h.Svc.Search(c.Request.Context(), userID(c), c.Query("q"), size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", nil)
}
