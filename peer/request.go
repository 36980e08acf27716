package peer

import (
	"fmt"
	"sync"
	"time"

	"go.nodewire.dev/peer/wire"
)

// RequestCallback receives either the decoded payload of a matching
// response or a timeout/cancellation error. Returning true ("keep")
// retains the entry at the head of its queue to wait for a further
// packet in the same category (used by multi-packet exchanges such as
// a getheaders sweep that expects more than one headers batch);
// returning false dequeues and destroys it.
type RequestCallback func(payload any, err error) (keep bool)

// RequestEntry represents one outstanding wait for a named inbound
// packet category (spec.md §3/§4.3).
type RequestEntry struct {
	id       uint64
	cmd      wire.Command
	callback RequestCallback
	timer    *time.Timer
}

type requestTable struct {
	mu     sync.Mutex
	nextID uint64
	queues map[wire.Command][]*RequestEntry
}

func newRequestTable() *requestTable {
	return &requestTable{queues: make(map[wire.Command][]*RequestEntry)}
}

// request allocates a RequestEntry, appends it to cmd's queue, and
// arms a timeout timer that removes it by id equality on expiry.
func (t *requestTable) request(cmd wire.Command, timeout time.Duration, cb RequestCallback) *RequestEntry {
	t.mu.Lock()
	t.nextID++
	entry := &RequestEntry{id: t.nextID, cmd: cmd, callback: cb}
	t.queues[cmd] = append(t.queues[cmd], entry)
	t.mu.Unlock()

	entry.timer = time.AfterFunc(timeout, func() {
		t.removeByID(cmd, entry.id)
		cb(nil, fmt.Errorf("peer: request %s timed out after %s", cmd, timeout))
	})
	return entry
}

// cancel removes entry from its queue without invoking its callback,
// stopping its timer. Used when a session shuts down a specific wait
// deliberately (e.g. superseding a sync request).
func (t *requestTable) cancel(entry *RequestEntry) {
	if entry == nil {
		return
	}
	entry.timer.Stop()
	t.removeByID(entry.cmd, entry.id)
}

func (t *requestTable) removeByID(cmd wire.Command, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q := t.queues[cmd]
	for i, e := range q {
		if e.id == id {
			q = append(q[:i], q[i+1:]...)
			break
		}
	}
	if len(q) == 0 {
		delete(t.queues, cmd)
	} else {
		t.queues[cmd] = q
	}
}

// response looks at the head entry of cmd's queue and invokes its
// callback. An empty queue is a silent no-op (spec.md §4.3: "extra or
// unsolicited responses are silently ignored"). Returns whether an
// entry was found and invoked.
func (t *requestTable) response(cmd wire.Command, payload any) bool {
	t.mu.Lock()
	q := t.queues[cmd]
	if len(q) == 0 {
		t.mu.Unlock()
		return false
	}
	entry := q[0]
	t.mu.Unlock()

	keep := entry.callback(payload, nil)
	entry.timer.Stop()
	if !keep {
		t.removeByID(cmd, entry.id)
	} else {
		// Re-arm against the same timeout window it was originally
		// created with is the caller's responsibility if needed; a
		// kept entry simply stays at the head with its timer stopped
		// until the next matching response or an explicit re-request.
	}
	return true
}

// destroyAll resolves every outstanding entry across every queue with
// err, used when the session is torn down (spec.md §4.11: destroy
// "destroys every pending RequestEntry").
func (t *requestTable) destroyAll(err error) {
	t.mu.Lock()
	all := make([]*RequestEntry, 0)
	for _, q := range t.queues {
		all = append(all, q...)
	}
	t.queues = make(map[wire.Command][]*RequestEntry)
	t.mu.Unlock()

	for _, e := range all {
		e.timer.Stop()
		e.callback(nil, err)
	}
}

// fire both fulfills any pending request for cmd (if one exists) and
// emits the corresponding upward event, in that order, atomically
// relative to external observers (spec.md §4.3).
func (s *Session) fire(cmd wire.Command, kind EventKind, payload any) {
	s.reqs.response(cmd, payload)
	s.events.emit(kind, payload)
}
