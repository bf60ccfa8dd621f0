// Package signals dispatches model lifecycle events to connected receivers.
package signals

import (
	"context"
	"sync"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
)

// PostSave is sent after a message has been written.
type PostSave struct {
	Message *entity.Message
	Created bool
}

// Receiver handles a PostSave event. Receivers run synchronously in the
// order they were connected.
type Receiver func(ctx context.Context, ev PostSave)

// Dispatcher fans PostSave events out to receivers.
type Dispatcher struct {
	mu        sync.RWMutex
	receivers []Receiver
}

func NewDispatcher() *Dispatcher { return &Dispatcher{} }

func (d *Dispatcher) Connect(r Receiver) {
	if r == nil {
		return
	}
	d.mu.Lock()
	d.receivers = append(d.receivers, r)
	d.mu.Unlock()
}

// Send delivers ev to every receiver. A nil Dispatcher is a no-op.
func (d *Dispatcher) Send(ctx context.Context, ev PostSave) {
	if d == nil {
		return
	}
	d.mu.RLock()
	rs := make([]Receiver, len(d.receivers))
	copy(rs, d.receivers)
	d.mu.RUnlock()
	for _, r := range rs {
		r(ctx, ev)
	}
}
