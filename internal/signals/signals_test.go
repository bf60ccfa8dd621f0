package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
)

func TestDispatcher_SendInOrder(t *testing.T) {
	d := NewDispatcher()
	var got []string
	d.Connect(func(_ context.Context, ev PostSave) { got = append(got, "a:"+ev.Message.ID) })
	d.Connect(nil)
	d.Connect(func(_ context.Context, ev PostSave) {
		if ev.Created {
			got = append(got, "b:created")
		}
	})

	d.Send(context.Background(), PostSave{Message: &entity.Message{ID: "m1"}, Created: true})
	assert.Equal(t, []string{"a:m1", "b:created"}, got)
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() { d.Send(context.Background(), PostSave{}) })
}
