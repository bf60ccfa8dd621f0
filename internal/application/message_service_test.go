package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
	"github.com/oksasatya/go-ddd-private-messages/internal/signals"
	"github.com/oksasatya/go-ddd-private-messages/pkg/messaging"
	"github.com/oksasatya/go-ddd-private-messages/pkg/storage"
)

var (
	alice = &entity.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}
	bob   = &entity.User{ID: "u-bob", Username: "bob", Email: "bob@example.com"}
	carol = &entity.User{ID: "u-carol", Username: "carol", Email: ""}
)

type fixture struct {
	svc    *MessageService
	repo   *fakeMessages
	events []signals.PostSave
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := newFakeUsers(alice, bob, carol)
	f := &fixture{repo: newFakeMessages(users)}
	d := signals.NewDispatcher()
	d.Connect(func(_ context.Context, ev signals.PostSave) { f.events = append(f.events, ev) })
	f.svc = NewMessageService(f.repo, users, storage.NewFileSystem(afero.NewMemMapFs(), "/media"), d, messaging.NewPrinter("en"), nil, "", nil)
	f.svc.Now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) send(t *testing.T, from *entity.User, subject string, to ...string) []*entity.Message {
	t.Helper()
	ms, err := f.svc.Compose(context.Background(), from.ID, ComposeInput{Recipients: to, Subject: subject, Body: "body of " + subject})
	require.NoError(t, err)
	return ms
}

func TestCompose_OneMessagePerRecipient(t *testing.T) {
	f := newFixture(t)
	ms := f.send(t, alice, "Hi", "bob", "carol", "bob")

	require.Len(t, ms, 2)
	assert.Equal(t, bob.ID, ms[0].RecipientID)
	assert.Equal(t, carol.ID, ms[1].RecipientID)

	require.Len(t, f.events, 2)
	for _, ev := range f.events {
		assert.True(t, ev.Created)
		assert.Equal(t, alice, ev.Message.Sender)
	}
}

func TestCompose_UnknownRecipientWritesNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Compose(context.Background(), alice.ID, ComposeInput{Recipients: []string{"bob", "mallory"}, Subject: "x"})
	require.ErrorIs(t, err, ErrUnknownRecipient)
	assert.Contains(t, err.Error(), "mallory")
	assert.Empty(t, f.repo.byID)
	assert.Empty(t, f.events)

	_, err = f.svc.Compose(context.Background(), alice.ID, ComposeInput{Recipients: []string{" "}})
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestCompose_SenderLookupErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Compose(context.Background(), "u-ghost", ComposeInput{Recipients: []string{"bob"}, Subject: "x"})
	require.ErrorIs(t, err, ErrUserNotFound)

	down := errors.New("connection refused")
	f.svc.Users.(*fakeUsers).err = down
	_, err = f.svc.Compose(context.Background(), alice.ID, ComposeInput{Recipients: []string{"bob"}, Subject: "x"})
	require.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.repo.byID)
}

func TestCompose_FailedInsertKeepsEarlierDeliveries(t *testing.T) {
	f := newFixture(t)
	down := errors.New("insert failed")
	f.repo.createErr, f.repo.createLimit = down, 1

	ms, err := f.svc.Compose(context.Background(), alice.ID, ComposeInput{Recipients: []string{"bob", "carol"}, Subject: "x"})
	require.ErrorIs(t, err, down)
	require.Len(t, ms, 1)
	assert.Equal(t, bob.ID, ms[0].RecipientID)
	assert.Len(t, f.repo.byID, 1)
	assert.Len(t, f.events, 1)
}

func TestReplyDraftAndReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent := f.send(t, alice, "Re: Lunch", "bob")[0]

	draft, err := f.svc.ReplyDraft(ctx, bob.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", draft.Recipient)
	assert.Equal(t, "Re[2]: Lunch", draft.Subject)
	assert.Equal(t, "alice wrote:\n> body of Re: Lunch", draft.Body)

	_, err = f.svc.ReplyDraft(ctx, alice.ID, parent.ID)
	require.ErrorIs(t, err, ErrNotParticipant)
	_, err = f.svc.ReplyDraft(ctx, carol.ID, parent.ID)
	require.ErrorIs(t, err, ErrNotParticipant)
	_, err = f.svc.ReplyDraft(ctx, bob.ID, "nope")
	require.ErrorIs(t, err, ErrMessageNotFound)

	f.events = nil
	reply, err := f.svc.Compose(ctx, bob.ID, ComposeInput{Recipients: []string{draft.Recipient}, Subject: draft.Subject, Body: draft.Body, ParentID: parent.ID})
	require.NoError(t, err)
	require.Len(t, reply, 1)
	require.NotNil(t, reply[0].ParentID)
	assert.Equal(t, parent.ID, *reply[0].ParentID)
	assert.NotNil(t, f.repo.byID[parent.ID].RepliedAt)

	require.Len(t, f.events, 2)
	assert.True(t, f.events[0].Created)
	assert.False(t, f.events[1].Created)
}

func TestFolders_PaginatedNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, s := range []string{"one", "two", "three", "four", "five"} {
		f.send(t, alice, s, "bob")
	}

	page, err := f.svc.Inbox(ctx, bob.ID, "")
	require.NoError(t, err)
	assert.False(t, page.Paginated)
	assert.Len(t, page.Items, 5)

	f.svc.PageLength = 2
	page, err = f.svc.Inbox(ctx, bob.ID, "1")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "five", page.Items[0].Subject)
	assert.Equal(t, 3, page.NumPages)

	page, err = f.svc.Inbox(ctx, bob.ID, "3")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "one", page.Items[0].Subject)

	page, err = f.svc.Inbox(ctx, bob.ID, "99")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, "five", page.Items[0].Subject)

	out, err := f.svc.Outbox(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, out.Count)
}

func TestViewMarksReadForRecipientOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.send(t, alice, "Hi", "bob")[0]

	n, err := f.svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.View(ctx, alice.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsNew())

	got, err = f.svc.View(ctx, bob.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsNew())

	n, err = f.svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = f.svc.View(ctx, carol.ID, m.ID)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestDeleteUndeletePerSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.send(t, alice, "Hi", "bob")[0]

	require.NoError(t, f.svc.Delete(ctx, bob.ID, m.ID))

	inbox, err := f.svc.Inbox(ctx, bob.ID, "")
	require.NoError(t, err)
	assert.Empty(t, inbox.Items)
	trash, err := f.svc.Trash(ctx, bob.ID, "")
	require.NoError(t, err)
	assert.Len(t, trash.Items, 1)

	outbox, err := f.svc.Outbox(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.Len(t, outbox.Items, 1)

	require.NoError(t, f.svc.Undelete(ctx, bob.ID, m.ID))
	inbox, err = f.svc.Inbox(ctx, bob.ID, "")
	require.NoError(t, err)
	assert.Len(t, inbox.Items, 1)

	require.ErrorIs(t, f.svc.Delete(ctx, carol.ID, m.ID), ErrNotParticipant)
	require.ErrorIs(t, f.svc.Delete(ctx, bob.ID, "missing"), ErrMessageNotFound)
}

func TestAttach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.send(t, alice, "Report", "bob")[0]

	a, err := f.svc.Attach(ctx, alice.ID, m.ID, `C:\docs\Report.PDF`, "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "Report.PDF", a.Name)
	assert.Equal(t, int64(4), a.Size)
	assert.True(t, strings.HasPrefix(a.Path, "attachments/"+m.ID+"/"))
	assert.True(t, strings.HasSuffix(a.Path, ".pdf"))
	assert.Equal(t, "/media/"+a.Path, f.svc.AttachmentURL(*a))

	got, err := f.svc.View(ctx, bob.ID, m.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attachments, 1)

	_, err = f.svc.Attach(ctx, bob.ID, m.ID, "x.txt", "text/plain", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrNotParticipant)

	f.svc.MaxAttachmentBytes = 3
	_, err = f.svc.Attach(ctx, alice.ID, m.ID, "big.bin", "", bytes.NewReader(make([]byte, 4)))
	require.ErrorIs(t, err, ErrAttachmentTooLarge)

	f.svc.Storage = nil
	_, err = f.svc.Attach(ctx, alice.ID, m.ID, "x.txt", "text/plain", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrStorageDisabled)
}

func TestAttach_RemovesFileWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	f.svc.Storage = storage.NewFileSystem(fs, "")
	m := f.send(t, alice, "Report", "bob")[0]
	f.repo.attachErr = errors.New("db down")

	_, err := f.svc.Attach(ctx, alice.ID, m.ID, "a.txt", "text/plain", strings.NewReader("x"))
	require.Error(t, err)

	entries, err := afero.ReadDir(fs, "attachments/"+m.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearch_WithoutElasticsearch(t *testing.T) {
	f := newFixture(t)
	hits, err := f.svc.Search(context.Background(), alice.ID, "lunch", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchQuery_FiltersByParticipant(t *testing.T) {
	q := searchQuery("u1", "lunch", 5)
	assert.Equal(t, 5, q["size"])
	filter := q["query"].(map[string]any)["bool"].(map[string]any)["filter"].(map[string]any)["bool"].(map[string]any)
	assert.Len(t, filter["should"], 2)
	assert.Equal(t, 1, filter["minimum_should_match"])
}

func TestMessagesIndexBody_KeywordParticipants(t *testing.T) {
	var body struct {
		Mappings struct {
			Properties map[string]struct {
				Type   string                       `json:"type"`
				Fields map[string]map[string]string `json:"fields"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(MessagesIndexBody), &body))
	props := body.Mappings.Properties
	assert.Equal(t, "keyword", props["sender_id"].Fields["keyword"]["type"])
	assert.Equal(t, "keyword", props["recipient_id"].Fields["keyword"]["type"])
	assert.Equal(t, "date", props["sent_at"].Type)
}

var _ repo.MessageRepository = (*fakeMessages)(nil)
