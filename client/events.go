package client

import (
	"sync"

	"wren/imap"
)

// eventQueue defers observer callbacks off the read goroutine. Emits append
// to an unbounded FIFO and never block; a single dispatcher goroutine drains
// it, so callbacks see events in server arrival order and may call back into
// the session without deadlocking the goroutine that feeds them.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []func()
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// post enqueues one callback. Posts after close are dropped.
func (q *eventQueue) post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()
	q.cond.Signal()
}

// close lets the dispatcher drain what is queued and exit.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Signal()
}

// run is the dispatcher loop. It exits once the queue is closed and empty.
func (q *eventQueue) run() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()
	}
}

// Event dispatch helpers. Callbacks are queued in server arrival order and
// run on the dispatcher goroutine, never on the read goroutine, so handlers
// are free to call back into the session.

func (s *Session) emitMail(total uint32) {
	if h := s.cfg.Updates; h != nil && h.Mail != nil {
		s.events.post(func() { h.Mail(total) })
	}
}

func (s *Session) emitUpdate(msg *imap.Message) {
	if h := s.cfg.Updates; h != nil && h.Update != nil {
		s.events.post(func() { h.Update(msg) })
	}
}

func (s *Session) emitExpunge(seqNum uint32) {
	if h := s.cfg.Updates; h != nil && h.Expunge != nil {
		s.events.post(func() { h.Expunge(seqNum) })
	}
}

func (s *Session) emitClose(err error) {
	if h := s.cfg.Updates; h != nil && h.Close != nil {
		s.events.post(func() { h.Close(err) })
	}
}

func (s *Session) emitError(err error) {
	if h := s.cfg.Updates; h != nil && h.Error != nil {
		s.events.post(func() { h.Error(err) })
	}
}
