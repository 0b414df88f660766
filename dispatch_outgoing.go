package realtime

// outgoingDispatcher drains the outgoing queue to the transport whenever
// the connection is Connected, moving ack-required frames into the
// pending queue before the write (I3) and yielding between batches so a
// large backlog doesn't starve the loop goroutine (spec.md §4.4, C5).
type outgoingDispatcher struct {
	c *Client
}

func newOutgoingDispatcher(c *Client) *outgoingDispatcher {
	return &outgoingDispatcher{c: c}
}

// drain is invoked from the loop goroutine: after a Send() or Ping()
// enqueues a frame, after entry into Connected, and when a Close frame is
// queued. It is a no-op unless the connection is Connected.
func (d *outgoingDispatcher) drain() {
	c := d.c
	if c.state.state() != StateConnected || c.manager.transport == nil {
		return
	}
	if c.metrics != nil {
		defer func() { c.metrics.serialCounterGauge.Set(float64(c.serials.peek())) }()
	}

	for c.outQueue.len() > 0 {
		if !c.limiter.Allow() {
			// Rate budget exhausted; resume on the next trigger rather than
			// busy-waiting the loop goroutine.
			return
		}

		msg, ok := c.outQueue.popFront()
		if !ok {
			return
		}

		// A frame replayed after a resumable disconnect already carries the
		// serial it was assigned before the transport dropped (spec.md §3
		// scenario 2: "its msgSerial remains 3"); only a never-sent frame
		// gets a fresh one here (I1).
		assignedThisPass := false
		if msg.AckRequired() && msg.MsgSerial == nil {
			serial := c.serials.assign()
			msg.MsgSerial = &serial
			assignedThisPass = true
		}

		// Append to the pending queue before the write, never after (I3):
		// once a frame is on the wire there must be no window where an
		// Ack/Nack for it could arrive and find nothing pending.
		var awaiter *pendingAwaiter
		if msg.AckRequired() {
			awaiter = c.sendAwaiters[msg]
			delete(c.sendAwaiters, msg)
			c.ack.track(*msg.MsgSerial, msg, awaiter)
		}

		rollbackTrack := func() {
			if msg.AckRequired() {
				c.sendAwaiters[msg] = c.ack.untrack(msg)
			}
			if assignedThisPass {
				c.serials.rollback()
				msg.MsgSerial = nil
			}
		}

		frame, err := c.codec.Encode(msg)
		if err != nil {
			rollbackTrack()
			d.failSend(msg, wrapError(ErrKindInvalidArgument, err, "encode outgoing frame"))
			continue
		}

		if err := c.manager.transport.Send(frame); err != nil {
			// The write itself failed: undo the pending-queue entry and any
			// fresh serial assignment, put the frame back at the front of
			// the queue, then let the manager's transport-error handling
			// decide the next state (spec.md §4.4 "stop-on-write-failure").
			// Undoing here matters because onTransportError may itself
			// drain-for-replay whatever is still pending — leaving this
			// entry tracked would double-queue it.
			rollbackTrack()
			c.outQueue.pushFront(msg)
			c.manager.onTransportError(wrapError(ErrKindConnectionError, err, "write frame"))
			return
		}

		c.scheduler.Yield()
	}
}

// failSend is reached only for frames this client could not even encode;
// it never touches the wire, so there is nothing for the manager to
// retry.
func (d *outgoingDispatcher) failSend(msg *ProtocolMessage, err error) {
	component(d.c.logger, "dispatch.outgoing").Warn().Err(err).
		Str("action", msg.Action.String()).Msg("dropping unencodable outgoing frame")
}
