package entity

import "time"

// Message is a private message from one sender to one recipient.
// Each side deletes independently; a message is purged by neither.
type Message struct {
	ID                 string
	Subject            string
	Body               string
	SenderID           string
	RecipientID        string
	ParentID           *string
	SentAt             time.Time
	ReadAt             *time.Time
	RepliedAt          *time.Time
	SenderDeletedAt    *time.Time
	RecipientDeletedAt *time.Time

	// Loaded on demand by the repository.
	Sender      *User
	Recipient   *User
	Attachments []Attachment
}

// Attachment is a file stored through the configured storage backend.
type Attachment struct {
	ID          string
	MessageID   string
	Name        string
	Path        string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

func (m *Message) IsNew() bool     { return m.ReadAt == nil }
func (m *Message) IsReplied() bool { return m.RepliedAt != nil }

// IsParticipant reports whether userID sent or received the message.
func (m *Message) IsParticipant(userID string) bool {
	return userID != "" && (m.SenderID == userID || m.RecipientID == userID)
}

// DeletedBy reports whether userID moved the message to their trash.
func (m *Message) DeletedBy(userID string) bool {
	switch userID {
	case m.SenderID:
		return m.SenderDeletedAt != nil
	case m.RecipientID:
		return m.RecipientDeletedAt != nil
	}
	return false
}
