package conversation

import (
	"context"
	"errors"
	"sync"
)

// ErrMailboxClosed is returned by Publish after Stop.
var ErrMailboxClosed = errors.New("mailbox is closed")

// Handler consumes the events of one user, one at a time.
type Handler func(ctx context.Context, ev Event)

// Mailbox fans inbound events out to one worker per user, so a user's
// events are handled in arrival order while different users proceed
// independently.
type Mailbox struct {
	handler   Handler
	buffer    int
	boxes     map[int64]chan Event
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
	ctx       context.Context
}

// NewMailbox starts no goroutines until the first event of each user. ctx
// is passed to the handler and stops the workers when cancelled.
func NewMailbox(ctx context.Context, buffer int, handler Handler) *Mailbox {
	if buffer <= 0 {
		buffer = 16
	}
	return &Mailbox{
		handler:   handler,
		buffer:    buffer,
		boxes:     make(map[int64]chan Event),
		closeChan: make(chan struct{}),
		ctx:       ctx,
	}
}

// Publish enqueues ev behind the user's earlier events. It blocks while the
// user's box is full.
func (m *Mailbox) Publish(ctx context.Context, ev Event) error {
	box, err := m.box(ev.UserID)
	if err != nil {
		return err
	}

	select {
	case box <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.closeChan:
		return ErrMailboxClosed
	}
}

func (m *Mailbox) box(userID int64) (chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrMailboxClosed
	}
	box, ok := m.boxes[userID]
	if !ok {
		box = make(chan Event, m.buffer)
		m.boxes[userID] = box
		m.wg.Add(1)
		go m.worker(box)
	}
	return box, nil
}

func (m *Mailbox) worker(box chan Event) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.closeChan:
			return
		case ev := <-box:
			m.handler(m.ctx, ev)
		}
	}
}

// Stop rejects new events and waits for in-flight handlers to return.
func (m *Mailbox) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.closeChan)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
