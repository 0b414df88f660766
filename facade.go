package realtime

import (
	"context"
	"time"
)

// Connect moves the connection from Initialized/Closed/Failed towards
// Connected, blocking until it arrives there or settles into Suspended/
// Failed (spec.md §4.7). Calling Connect while already Connected is a
// no-op; calling it while Connecting attaches to the in-flight attempt.
func (c *Client) Connect(ctx context.Context) error {
	resCh := make(chan error, 1)
	c.enqueue(func() {
		switch c.state.state() {
		case StateConnected:
			resCh <- nil
			return
		case StateClosing:
			resCh <- newError(ErrKindInvalidStateTransition, "cannot connect while closing")
			return
		}

		alreadyConnecting := c.state.state() == StateConnecting
		var handlerID uint64
		handlerID = c.onStateChange(func(change StateChange) {
			switch change.Current {
			case StateConnected:
				c.offStateChange(handlerID)
				resCh <- nil
			case StateSuspended, StateFailed:
				c.offStateChange(handlerID)
				resCh <- change.Err
			}
		})

		if !alreadyConnecting {
			if err := c.manager.connect(); err != nil {
				c.offStateChange(handlerID)
				resCh <- err
			}
		}
	})

	select {
	case err := <-resCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drives the Closing sequence (spec.md §4.6/§4.7) and blocks until
// the connection settles into Closed (or Failed, if the close frame
// itself errors). The loop goroutine is stopped once Closed is reached.
func (c *Client) Close(ctx context.Context) error {
	resCh := make(chan error, 1)
	c.enqueue(func() {
		if c.state.state() == StateClosed {
			resCh <- nil
			return
		}

		var handlerID uint64
		handlerID = c.onStateChange(func(change StateChange) {
			if change.Current != StateClosed && change.Current != StateFailed {
				return
			}
			c.offStateChange(handlerID)
			var err error
			if change.Current == StateFailed {
				err = change.Err
			}
			resCh <- err
			if change.Current == StateClosed {
				c.shutdownLoop()
			}
		})

		if err := c.manager.closeConnection(); err != nil {
			c.offStateChange(handlerID)
			resCh <- err
		}
	})

	select {
	case err := <-resCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send enqueues msg on the outgoing queue (spec.md §4.4). If msg
// requires an ack, Send blocks until the matching Ack/Nack resolves it,
// or ctx is done, or the connection is reset/terminated first.
func (c *Client) Send(ctx context.Context, msg *ProtocolMessage) error {
	if !msg.AckRequired() {
		c.enqueue(func() {
			c.outQueue.push(msg)
			c.outgoing.drain()
		})
		return nil
	}

	awaiter := newPendingAwaiter()
	c.enqueue(func() {
		c.sendAwaiters[msg] = awaiter
		c.outQueue.push(msg)
		c.outgoing.drain()
	})

	select {
	case <-awaiter.wait():
		return awaiter.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping round-trips a Heartbeat frame through the connection, resolving
// with the elapsed round-trip duration once the matching Heartbeat is
// observed on the incoming bus (spec.md §4.7/§8 scenario 5), or failing
// immediately while Initialized/Closed/Failed. Ping has no implicit
// timeout; callers arm their own via ctx.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	resCh := make(chan time.Duration, 1)
	errCh := make(chan error, 1)
	var subID subscription
	c.enqueue(func() {
		switch c.state.state() {
		case StateInitialized, StateClosed, StateFailed:
			errCh <- newError(ErrKindInvalidStateTransition,
				"ping is not available while %s", c.state.state())
			return
		}

		start := c.scheduler.Now()
		var err error
		subID, err = c.inBus.subscribe(EventProtocolMessage, func(m *ProtocolMessage) {
			if m.Action == ActionHeartbeat {
				select {
				case resCh <- c.scheduler.Now().Sub(start):
				default:
				}
			}
		})
		if err != nil {
			errCh <- err
			return
		}
		c.outQueue.push(&ProtocolMessage{Action: ActionHeartbeat})
		c.outgoing.drain()
	})

	defer c.enqueue(func() { c.inBus.unsubscribe(subID) })

	select {
	case d := <-resCh:
		return d, nil
	case err := <-errCh:
		return 0, err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// RecoveryKey returns the current "{key}:{serial}" recovery token, or ""
// if no ResumeInfo is present (spec.md §4.7, P6).
func (c *Client) RecoveryKey() string {
	resCh := make(chan string, 1)
	c.enqueue(func() { resCh <- c.resume.recoveryKey() })
	return <-resCh
}

// State returns the current connection state.
func (c *Client) State() State {
	resCh := make(chan State, 1)
	c.enqueue(func() { resCh <- c.state.state() })
	return <-resCh
}

// Details returns the most recent server-advertised ConnectionDetails,
// or the zero value before the first Connected frame.
func (c *Client) Details() ConnectionDetails {
	resCh := make(chan ConnectionDetails, 1)
	c.enqueue(func() {
		if c.details != nil {
			resCh <- *c.details
		} else {
			resCh <- ConnectionDetails{}
		}
	})
	return <-resCh
}

// Stats returns a point-in-time snapshot of queue depths, the serial
// counter, and (if enabled) sampled host resource usage.
func (c *Client) Stats() Stats {
	resCh := make(chan Stats, 1)
	c.enqueue(func() {
		s := Stats{
			State:              c.state.state(),
			PendingQueueDepth:  c.ack.pending.len(),
			OutgoingQueueDepth: c.outQueue.len(),
			SerialCounter:      c.serials.peek(),
			ReconnectAttempts:  int64(c.manager.retriesDisconnected + c.manager.retriesSuspended),
		}
		if c.sampler != nil {
			s.CPUPercent, s.MemoryMB = c.sampler.snapshot()
		}
		resCh <- s
	})
	return <-resCh
}

// On registers fn to be called on every connection StateChange, and
// returns a function that unregisters it.
func (c *Client) On(fn func(StateChange)) func() {
	doneCh := make(chan uint64, 1)
	c.enqueue(func() { doneCh <- c.onStateChange(fn) })
	id := <-doneCh
	return func() { c.enqueue(func() { c.offStateChange(id) }) }
}

// Subscribe registers fn on the incoming bus, returning an unsubscribe
// function. The bus carries every inbound frame after its internal
// handling, except Ack, Nack and unknown-action frames.
func (c *Client) Subscribe(fn func(*ProtocolMessage)) (func(), error) {
	type result struct {
		id  subscription
		err error
	}
	resCh := make(chan result, 1)
	c.enqueue(func() {
		id, err := c.inBus.subscribe(EventProtocolMessage, fn)
		resCh <- result{id, err}
	})
	r := <-resCh
	if r.err != nil {
		return nil, r.err
	}
	return func() { c.enqueue(func() { c.inBus.unsubscribe(r.id) }) }, nil
}
