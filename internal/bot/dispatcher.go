package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"subembed/internal/logging"
	"subembed/internal/services"
)

// DefaultMailboxSize caps queued events per user.
const DefaultMailboxSize = 64

// EventHandler processes one event.
type EventHandler interface {
	Handle(ctx context.Context, ev Event)
}

// Dispatcher serializes events per user. Each user with pending events gets
// one goroutine that drains their mailbox in arrival order; different users
// run concurrently.
type Dispatcher struct {
	handler     EventHandler
	logger      *slog.Logger
	mailboxSize int

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	mailboxes map[int64]*mailbox
	closed    bool
	wg        sync.WaitGroup
}

type mailbox struct {
	queue []Event
}

// NewDispatcher constructs a Dispatcher whose handlers run under ctx.
// A non-positive mailboxSize uses DefaultMailboxSize.
func NewDispatcher(ctx context.Context, handler EventHandler, mailboxSize int, logger *slog.Logger) *Dispatcher {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	runCtx, cancel := context.WithCancel(ctx)
	return &Dispatcher{
		handler:     handler,
		logger:      logging.NewComponentLogger(logger, "dispatcher"),
		mailboxSize: mailboxSize,
		ctx:         runCtx,
		cancel:      cancel,
		mailboxes:   make(map[int64]*mailbox),
	}
}

// Submit queues ev for its sender and never blocks. It returns false when the
// dispatcher is closed or the sender's mailbox is full.
func (d *Dispatcher) Submit(ev Event) bool {
	userID := ev.Origin().UserID

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if mb, ok := d.mailboxes[userID]; ok {
		if len(mb.queue) >= d.mailboxSize {
			logging.WarnWithContext(d.logger, "mailbox full; dropping event", "mailbox_full",
				logging.Int64(logging.FieldUserID, userID),
				logging.String("event", fmt.Sprintf("%T", ev)),
				logging.String(logging.FieldErrorHint, "user is sending faster than jobs complete"),
				logging.String(logging.FieldImpact, "event ignored"),
			)
			return false
		}
		mb.queue = append(mb.queue, ev)
		return true
	}
	mb := &mailbox{queue: []Event{ev}}
	d.mailboxes[userID] = mb
	d.wg.Add(1)
	go d.drain(userID, mb)
	return true
}

func (d *Dispatcher) drain(userID int64, mb *mailbox) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(mb.queue) == 0 {
			delete(d.mailboxes, userID)
			d.mu.Unlock()
			return
		}
		ev := mb.queue[0]
		mb.queue[0] = nil
		mb.queue = mb.queue[1:]
		d.mu.Unlock()

		d.run(userID, ev)
	}
}

func (d *Dispatcher) run(userID int64, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger := logging.WithContext(services.WithUserID(d.ctx, userID), d.logger)
			logging.ErrorWithContext(logger, "event handler panicked", "handler_panic",
				logging.String("event", fmt.Sprintf("%T", ev)),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	d.handler.Handle(d.ctx, ev)
}

// Active returns the number of users with queued or running events.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mailboxes)
}

// Close stops accepting events and cancels running handlers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
}

// Wait blocks until every mailbox has drained.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
