package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-private-messages/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-private-messages/pkg/mailer/templates"
)

type recordingSender struct {
	got []mailer.Email
	err error
}

func (r *recordingSender) Send(_ context.Context, e mailer.Email) error {
	r.got = append(r.got, e)
	return r.err
}

func TestProcessJob_Raw(t *testing.T) {
	s := &recordingSender{}
	body, _ := json.Marshal(mailer.EmailJob{To: " bob@example.com ", Subject: "Hi", Text: "hello"})

	require.NoError(t, processJob(context.Background(), body, s, "noreply@example.com"))
	require.Len(t, s.got, 1)
	assert.Equal(t, "noreply@example.com", s.got[0].From)
	assert.Equal(t, []string{"bob@example.com"}, s.got[0].To)
}

func TestProcessJob_Template(t *testing.T) {
	s := &recordingSender{}
	data := mailtpl.ToMap(mailtpl.NewMessageData(nil, "https://example.com", mailtpl.MessageView{
		ID: "m1", Subject: "Lunch", Body: "Noon?", SenderName: "alice", SentAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Path: "/messages/m1",
	}))
	body, _ := json.Marshal(mailer.EmailJob{To: "bob@example.com", Template: "New_Message", Data: data})

	require.NoError(t, processJob(context.Background(), body, s, ""))
	require.Len(t, s.got, 1)
	assert.Equal(t, "New Message: Lunch", s.got[0].Subject)
	assert.Contains(t, s.got[0].Text, "https://example.com/messages/m1")
	assert.Contains(t, s.got[0].Text, "01 March 2024")
}

func TestProcessJob_BadJobsAreNotRequeued(t *testing.T) {
	s := &recordingSender{}
	for _, body := range []string{
		`not json`,
		`{"to":""}`,
		`{"to":"bob@example.com","template":"missing"}`,
	} {
		err := processJob(context.Background(), []byte(body), s, "")
		require.ErrorIs(t, err, errBadJob, body)
	}
	assert.Empty(t, s.got)
}

func TestProcessJob_SendFailureIsRetryable(t *testing.T) {
	s := &recordingSender{err: errors.New("mailgun 503")}
	body, _ := json.Marshal(mailer.EmailJob{To: "bob@example.com", Subject: "Hi", Text: "hello"})
	err := processJob(context.Background(), body, s, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errBadJob)
}
