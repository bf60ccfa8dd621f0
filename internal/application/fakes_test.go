package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
)

type fakeUsers struct {
	byID map[string]*entity.User
	err  error
}

func newFakeUsers(users ...*entity.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*entity.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

// fakeMessages is an in-memory MessageRepository.
type fakeMessages struct {
	mu          sync.Mutex
	users       *fakeUsers
	seq         int
	base        time.Time
	byID        map[string]*entity.Message
	attachments map[string][]entity.Attachment
	attachErr   error
	createErr   error
	createLimit int // Create fails with createErr once this many rows exist
}

func newFakeMessages(users *fakeUsers) *fakeMessages {
	return &fakeMessages{
		users:       users,
		base:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		byID:        map[string]*entity.Message{},
		attachments: map[string][]entity.Attachment{},
	}
}

func (f *fakeMessages) Create(_ context.Context, m *entity.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil && f.seq >= f.createLimit {
		return f.createErr
	}
	f.seq++
	m.ID = fmt.Sprintf("m%d", f.seq)
	m.SentAt = f.base.Add(time.Duration(f.seq) * time.Minute)
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeMessages) hydrate(m *entity.Message) *entity.Message {
	cp := *m
	cp.Sender = f.users.byID[m.SenderID]
	cp.Recipient = f.users.byID[m.RecipientID]
	cp.Attachments = append([]entity.Attachment(nil), f.attachments[m.ID]...)
	return &cp
}

func (f *fakeMessages) GetByID(_ context.Context, id string) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return f.hydrate(m), nil
}

func inFolder(m *entity.Message, userID string, folder repo.Folder) bool {
	switch folder {
	case repo.Inbox:
		return m.RecipientID == userID && m.RecipientDeletedAt == nil
	case repo.Outbox:
		return m.SenderID == userID && m.SenderDeletedAt == nil
	case repo.Trash:
		return (m.RecipientID == userID && m.RecipientDeletedAt != nil) ||
			(m.SenderID == userID && m.SenderDeletedAt != nil)
	}
	return false
}

func (f *fakeMessages) folder(userID string, folder repo.Folder) []*entity.Message {
	var out []*entity.Message
	for _, m := range f.byID {
		if inFolder(m, userID, folder) {
			out = append(out, f.hydrate(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out
}

func (f *fakeMessages) CountFolder(_ context.Context, userID string, folder repo.Folder) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.folder(userID, folder)), nil
}

func (f *fakeMessages) ListFolder(_ context.Context, userID string, folder repo.Folder, offset, limit int) ([]*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.folder(userID, folder)
	if offset > len(all) {
		return []*entity.Message{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (f *fakeMessages) CountUnread(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.byID {
		if m.RecipientID == userID && m.ReadAt == nil && m.RecipientDeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok || m.ReadAt != nil {
		return repo.ErrNotFound
	}
	m.ReadAt = &at
	return nil
}

func (f *fakeMessages) MarkReplied(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	m.RepliedAt = &at
	return nil
}

func (f *fakeMessages) SetDeleted(_ context.Context, id, userID string, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok || !m.IsParticipant(userID) {
		return repo.ErrNotFound
	}
	if m.SenderID == userID {
		m.SenderDeletedAt = at
	}
	if m.RecipientID == userID {
		m.RecipientDeletedAt = at
	}
	return nil
}

func (f *fakeMessages) AddAttachment(_ context.Context, a *entity.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	a.ID = fmt.Sprintf("a%d", len(f.attachments[a.MessageID])+1)
	a.CreatedAt = f.base
	f.attachments[a.MessageID] = append(f.attachments[a.MessageID], *a)
	return nil
}

type fakeSites struct {
	sites map[int]*entity.Site
	calls int
	err   error
}

func (f *fakeSites) GetByID(_ context.Context, id int) (*entity.Site, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.sites[id]; ok {
		return s, nil
	}
	return nil, repo.ErrNotFound
}

// memRedis implements the string and hash commands the services use.
// Other redis.Cmdable methods are not implemented.
type memRedis struct {
	redis.Cmdable
	strings map[string]string
	getErr  error
}

func newMemRedis() *memRedis { return &memRedis{strings: map[string]string{}} }

func (m *memRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.strings[key] = string(v)
	case string:
		m.strings[key] = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value"))
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.strings[k]; ok {
			delete(m.strings, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}
