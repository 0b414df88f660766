package realtime

import "sync"

// pendingAwaiter is resolved when its frame's Ack/Nack arrives, or
// rejected on generation reset / terminal failure (spec.md §4.8).
type pendingAwaiter struct {
	done chan struct{}
	err  error
}

func newPendingAwaiter() *pendingAwaiter {
	return &pendingAwaiter{done: make(chan struct{})}
}

func (a *pendingAwaiter) resolve() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

func (a *pendingAwaiter) reject(err error) {
	select {
	case <-a.done:
	default:
		a.err = err
		close(a.done)
	}
}

func (a *pendingAwaiter) wait() <-chan struct{} { return a.done }

func (a *pendingAwaiter) Err() error { return a.err }

// pendingEntry is one ack-required frame awaiting its server Ack/Nack.
type pendingEntry struct {
	serial   int64
	msg      *ProtocolMessage
	awaiter  *pendingAwaiter
}

// serialCounter assigns strictly increasing, pre-incremented serials
// starting at 0 (first assignment), per spec.md §3. Enqueue is
// transactional: a failed enqueue must roll the counter back.
type serialCounter struct {
	mu      sync.Mutex
	current int64
}

func newSerialCounter() *serialCounter {
	return &serialCounter{current: -1}
}

// assign pre-increments and returns the new serial.
func (c *serialCounter) assign() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current++
	return c.current
}

// rollback reverses a single assign() whose enqueue aborted.
func (c *serialCounter) rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current--
}

func (c *serialCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = -1
}

func (c *serialCounter) peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// outgoingQueue is the FIFO of frames awaiting transmission (spec.md §3).
// Not safe for concurrent use across goroutines; only ever touched from
// the loop goroutine (SPEC_FULL.md §5).
type outgoingQueue struct {
	items []*ProtocolMessage
}

func (q *outgoingQueue) push(m *ProtocolMessage) {
	q.items = append(q.items, m)
}

// pushFront prepends frames, used to replay drained pending entries (and
// to put back a frame whose write failed) ahead of anything the caller
// has enqueued since (spec.md §3 resume).
func (q *outgoingQueue) pushFront(msgs ...*ProtocolMessage) {
	q.items = append(msgs, q.items...)
}

func (q *outgoingQueue) popFront() (*ProtocolMessage, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

func (q *outgoingQueue) len() int { return len(q.items) }

// extractStaleReplays removes and returns any queued frame that already
// carries a MsgSerial (meaning it was moved here by a resumable
// disconnect's replay and is now stranded by a reconnect that did not
// actually resume the same session). The remaining, never-sent frames
// stay queued in order.
func (q *outgoingQueue) extractStaleReplays() []*ProtocolMessage {
	var stale []*ProtocolMessage
	kept := q.items[:0]
	for _, m := range q.items {
		if m.MsgSerial != nil {
			stale = append(stale, m)
		} else {
			kept = append(kept, m)
		}
	}
	q.items = kept
	return stale
}

// pendingQueue is the FIFO of ack-required frames awaiting Ack/Nack.
// Invariant I2: serials form a contiguous, strictly increasing run.
type pendingQueue struct {
	entries []*pendingEntry
}

func (q *pendingQueue) push(e *pendingEntry) {
	q.entries = append(q.entries, e)
}

func (q *pendingQueue) len() int { return len(q.entries) }

// serials returns the current contiguous run, for invariant checks in
// tests (P2 in spec.md §8).
func (q *pendingQueue) serials() []int64 {
	out := make([]int64, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.serial
	}
	return out
}

// ackUpTo removes and returns every entry with serial in
// [fromSerial, fromSerial+count), leaving resolution to the caller. It
// returns a ProtocolViolation, and removes nothing, unless the range is a
// contiguous prefix of what's pending (spec.md §4.5 step 3).
func (q *pendingQueue) ackUpTo(fromSerial int64, count int) ([]*pendingEntry, error) {
	return q.takeRange(fromSerial, count)
}

// nackRange behaves like ackUpTo but for rejection; the caller resolves
// or rejects the returned entries per the outer action (Ack vs Nack).
func (q *pendingQueue) nackRange(fromSerial int64, count int) ([]*pendingEntry, error) {
	return q.takeRange(fromSerial, count)
}

func (q *pendingQueue) takeRange(fromSerial int64, count int) ([]*pendingEntry, error) {
	if count <= 0 {
		count = 1
	}
	toSerial := fromSerial + int64(count) - 1

	if len(q.entries) == 0 {
		return nil, newError(ErrKindProtocolViolation,
			"ack/nack for serial %d..%d with empty pending queue", fromSerial, toSerial)
	}

	// The matched run must be a contiguous prefix of the pending queue:
	// anything else would violate I2/I3 (spec.md §4.8). In particular the
	// match must start at index 0 — an ack/nack against a serial buried
	// mid-queue would splice out a middle slice and leave what remains
	// discontiguous.
	if q.entries[0].serial != fromSerial {
		return nil, newError(ErrKindProtocolViolation,
			"ack/nack references serial %d which is not the head of the pending queue", fromSerial)
	}
	start := 0

	end := start
	expected := fromSerial
	for end < len(q.entries) && q.entries[end].serial <= toSerial {
		if q.entries[end].serial != expected {
			return nil, newError(ErrKindProtocolViolation,
				"pending queue serials not contiguous at %d", expected)
		}
		expected++
		end++
	}
	if expected-1 != toSerial {
		// The ack references serials beyond what's currently pending.
		// spec.md §9 leaves this case an explicit Open Question; we
		// treat it as a protocol violation rather than guess at a
		// truncation semantic (see SPEC_FULL.md §9).
		return nil, newError(ErrKindProtocolViolation,
			"ack/nack range %d..%d exceeds pending queue", fromSerial, toSerial)
	}

	matched := append([]*pendingEntry(nil), q.entries[start:end]...)
	q.entries = append(q.entries[:start], q.entries[end:]...)
	return matched, nil
}

// drainAll removes and returns every pending entry, used on generation
// reset or terminal failure (spec.md §4.8 failure semantics).
func (q *pendingQueue) drainAll() []*pendingEntry {
	out := q.entries
	q.entries = nil
	return out
}

// remove deletes the entry for msg (matched by pointer identity) without
// resolving or rejecting its awaiter, returning the awaiter so the caller
// can decide what to do with it. Used to undo a track() whose write
// subsequently failed, so the frame isn't double-replayed by both the
// caller's own retry and a later drainForReplay/resetGeneration pass.
func (q *pendingQueue) remove(msg *ProtocolMessage) *pendingAwaiter {
	for i, e := range q.entries {
		if e.msg == msg {
			aw := e.awaiter
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return aw
		}
	}
	return nil
}
