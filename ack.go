package realtime

// ackTracker ties the pendingQueue to per-frame awaiters, resolving or
// rejecting them as Ack/Nack frames arrive or the connection resets
// (spec.md §4.8, C9).
type ackTracker struct {
	pending pendingQueue
	metrics *metricsRegistry
}

func newAckTracker(m *metricsRegistry) *ackTracker {
	return &ackTracker{metrics: m}
}

// track records a newly-sent ack-required frame's pending entry. Must be
// called before the frame is handed to the transport (I3, spec.md §4.8).
// If awaiter is nil, a fresh one is created; callers that already handed
// one out to a caller of Send pass it here so the same awaiter settles.
func (t *ackTracker) track(serial int64, msg *ProtocolMessage, awaiter *pendingAwaiter) *pendingAwaiter {
	if awaiter == nil {
		awaiter = newPendingAwaiter()
	}
	t.pending.push(&pendingEntry{serial: serial, msg: msg, awaiter: awaiter})
	if t.metrics != nil {
		t.metrics.pendingQueueDepth.Set(float64(t.pending.len()))
	}
	return awaiter
}

// handleAck resolves every pending entry in the acked range.
func (t *ackTracker) handleAck(msg *ProtocolMessage) error {
	serial, count := ackRangeOf(msg)
	entries, err := t.pending.ackUpTo(serial, count)
	if err != nil {
		return err
	}
	for _, e := range entries {
		e.awaiter.resolve()
	}
	if t.metrics != nil {
		t.metrics.acksTotal.Inc()
		t.metrics.pendingQueueDepth.Set(float64(t.pending.len()))
	}
	return nil
}

// handleNack rejects every pending entry in the nacked range with the
// frame's attached error.
func (t *ackTracker) handleNack(msg *ProtocolMessage) error {
	serial, count := ackRangeOf(msg)
	entries, err := t.pending.nackRange(serial, count)
	if err != nil {
		return err
	}
	nackErr := wrapError(ErrKindServerError, msg.Error, "nack")
	for _, e := range entries {
		e.awaiter.reject(nackErr)
	}
	if t.metrics != nil {
		t.metrics.nacksTotal.Inc()
		t.metrics.pendingQueueDepth.Set(float64(t.pending.len()))
	}
	return nil
}

// resetGeneration rejects every still-pending entry with ConnectionReset
// (spec.md §4.8 failure semantics: "on generation change ... rejected
// with ConnectionReset").
func (t *ackTracker) resetGeneration() []*pendingEntry {
	entries := t.pending.drainAll()
	for _, e := range entries {
		e.awaiter.reject(newError(ErrKindConnectionReset, "connection generation changed"))
	}
	if t.metrics != nil {
		t.metrics.pendingQueueDepth.Set(0)
	}
	return entries
}

// failAll rejects every pending entry with a terminal error (Failed or
// Closed), per spec.md §4.8.
func (t *ackTracker) failAll(err error) {
	entries := t.pending.drainAll()
	for _, e := range entries {
		e.awaiter.reject(err)
	}
	if t.metrics != nil {
		t.metrics.pendingQueueDepth.Set(0)
	}
}

// drainForReplay removes and returns every pending entry so the caller
// can prepend the frames to the outgoing queue and re-register each
// awaiter against its frame (resumable disconnect) — the awaiter must
// travel with the frame, or the original Send() caller is left waiting
// on an awaiter nothing will ever resolve.
func (t *ackTracker) drainForReplay() []*pendingEntry {
	entries := t.pending.drainAll()
	if t.metrics != nil {
		t.metrics.pendingQueueDepth.Set(0)
	}
	return entries
}

// untrack undoes a track() whose write subsequently failed (or was never
// attempted because encoding failed), without resolving or rejecting the
// awaiter. Returns the awaiter so the caller can re-register it against a
// retry, or nil if msg wasn't tracked.
func (t *ackTracker) untrack(msg *ProtocolMessage) *pendingAwaiter {
	aw := t.pending.remove(msg)
	if t.metrics != nil {
		t.metrics.pendingQueueDepth.Set(float64(t.pending.len()))
	}
	return aw
}

func ackRangeOf(msg *ProtocolMessage) (serial int64, count int) {
	if msg.MsgSerial != nil {
		serial = *msg.MsgSerial
	}
	count = msg.Count
	if count <= 0 {
		count = 1
	}
	return serial, count
}
