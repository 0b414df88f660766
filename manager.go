package realtime

import (
	"context"
	"strconv"
)

// connectionManager is C7: it owns the Transport's lifecycle, supervises
// reconnect scheduling and host selection, and translates transport
// events into state-machine transitions (spec.md §4.6).
//
// Only ever touched from the loop goroutine; attemptID guards against
// stale continuations from superseded attempts (timers, transport
// events, auth fetches) acting on state that has since moved on.
type connectionManager struct {
	c       *Client
	factory TransportFactory
	transport Transport

	hosts *hostCursor

	attemptID           uint64
	currentAttemptFrom  State // state this attempt is retrying from, if any
	retriesDisconnected int
	retriesSuspended    int

	cancelRetryTimer func()
	cancelCloseTimer func()
}

func newConnectionManager(c *Client, factory TransportFactory) *connectionManager {
	return &connectionManager{
		c:       c,
		factory: factory,
		hosts:   newHostCursor(c.opts.Environment, c.opts.Host),
	}
}

// connect begins the first connection attempt, called only from
// Client.Connect() while not Connected, Connecting or Closing.
func (m *connectionManager) connect() error {
	if _, err := m.c.transition(StateConnecting, nil); err != nil {
		return err
	}
	m.retriesDisconnected = 0
	m.retriesSuspended = 0
	m.beginAttempt(StateInitialized)
	return nil
}

// beginAttempt computes the host for this attempt, fetches fresh auth
// params off the loop goroutine, and opens the transport once both are
// ready.
func (m *connectionManager) beginAttempt(previousBeforeConnecting State) {
	m.attemptID++
	attempt := m.attemptID
	m.currentAttemptFrom = previousBeforeConnecting
	c := m.c

	priorRetries := m.retriesDisconnected
	if previousBeforeConnecting == StateSuspended {
		priorRetries = m.retriesSuspended
	}
	host := m.hosts.beginAttempt(previousBeforeConnecting, priorRetries)

	if c.metrics != nil {
		c.metrics.reconnectAttempts.Inc()
	}

	provider := c.opts.authProvider()
	c.scheduler.Defer(
		func() (any, error) {
			return provider.Fetch(context.Background())
		},
		func(v any, err error) {
			c.enqueue(func() { m.onAuthResult(attempt, host, v, err) })
		},
	)
}

func (m *connectionManager) onAuthResult(attempt uint64, host string, v any, err error) {
	if attempt != m.attemptID {
		return // superseded by a newer attempt or a user-initiated close
	}
	if err != nil {
		m.onAttemptFailed(wrapError(ErrKindAuthFailure, err, "fetch auth params"))
		return
	}
	params, _ := v.(AuthParams)
	m.openTransport(attempt, host, params)
}

// openTransport builds the query string per spec.md §4.6's open
// sequence and dials.
func (m *connectionManager) openTransport(attempt uint64, host string, auth AuthParams) {
	c := m.c
	query := map[string]string{
		"timestamp": strconv.FormatInt(c.scheduler.Now().Unix(), 10),
		"format":    c.opts.Format,
		"echo":      strconv.FormatBool(c.opts.EchoMessages),
	}
	if auth.Key != "" {
		query["key"] = auth.Key
	}
	if auth.AccessToken != "" {
		query["access_token"] = auth.AccessToken
	}
	if c.opts.ClientID != "" {
		query["clientId"] = c.opts.ClientID
	}

	if c.resume.present() {
		query["resume"] = c.resume.Key
		query["connection_serial"] = strconv.FormatInt(c.resume.LastConnectionSerial, 10)
	} else if c.recoverInfo != nil && c.recoverInfo.available() {
		query["recover"] = c.recoverInfo.RecoverKey
		query["connection_serial"] = strconv.FormatInt(c.recoverInfo.Serial, 10)
	}

	transport := m.factory()
	events, err := transport.Open(context.Background(), host, query)
	if err != nil {
		m.onAttemptFailed(wrapError(ErrKindConnectionError, err, "open transport to %s", host))
		return
	}

	m.transport = transport
	go m.consumeEvents(attempt, events)
}

// consumeEvents runs on its own goroutine, forwarding every TransportEvent
// into the loop goroutine tagged with the attempt it belongs to.
func (m *connectionManager) consumeEvents(attempt uint64, events <-chan TransportEvent) {
	c := m.c
	for ev := range events {
		event := ev
		c.enqueue(func() { m.handleTransportEvent(attempt, event) })
	}
}

func (m *connectionManager) handleTransportEvent(attempt uint64, ev TransportEvent) {
	if attempt != m.attemptID {
		return
	}
	c := m.c
	switch ev.Kind {
	case TransportOpen:
		// Nothing to do yet; we wait for the server's Connected frame
		// (spec.md §4.5/§4.6) before considering the attempt successful.
	case TransportMessage:
		msg, err := c.codec.Decode(ev.Payload)
		if err != nil {
			component(c.logger, "manager").Warn().Err(err).Msg("discarding unparseable inbound frame")
			return
		}
		c.incoming.handle(msg)
	case TransportError:
		m.onAttemptFailed(wrapError(ErrKindConnectionError, ev.Err, "transport error"))
	case TransportClose:
		m.onTransportClosed()
	}
}

// onTransportError is called by the outgoing dispatcher when a Send
// fails mid-drain (spec.md §4.4's stop-on-write-failure); it reuses the
// same attempt-scoped failure path as a transport-reported error.
func (m *connectionManager) onTransportError(err error) {
	m.onAttemptFailed(err)
}

// onAttemptFailed handles both a failed open and a failed live
// connection: from Connecting it goes to Disconnected or Suspended per
// the retry budget (never Failed); from Connected it always goes to Disconnected
// first (spec.md §4.6 retry policy table).
func (m *connectionManager) onAttemptFailed(err error) {
	c := m.c
	m.closeTransport()

	current := c.state.state()
	if current == StateClosing || current == StateClosed || current == StateFailed {
		return
	}

	if current == StateConnected {
		// Resumable by default (spec.md §3 PendingQueue invariant): move
		// whatever was awaiting ack back to the front of the outgoing
		// queue, serials intact, for replay once reconnected. Each
		// awaiter travels with its frame so the original Send() caller
		// still settles once the replayed frame is acked or nacked.
		entries := c.ack.drainForReplay()
		replay := make([]*ProtocolMessage, len(entries))
		for i, e := range entries {
			c.sendAwaiters[e.msg] = e.awaiter
			replay[i] = e.msg
		}
		c.outQueue.pushFront(replay...)
		if _, terr := c.transition(StateDisconnected, err); terr != nil {
			return
		}
		m.scheduleRetry(StateDisconnected)
		return
	}

	// We were Connecting, either for the very first attempt or retrying
	// from Disconnected/Suspended. Only a retry's failure counts against
	// the budget — the first attempt from Initialized/Closed/Failed never
	// does (spec.md §4.6 scenario 4: the first two attempts both hit the
	// primary host).
	from := m.currentAttemptFrom
	switch from {
	case StateDisconnected:
		m.retriesDisconnected++
	case StateSuspended:
		m.retriesSuspended++
	}

	if from != StateSuspended && m.retriesDisconnected >= c.opts.MaxDisconnectedRetries {
		if _, terr := c.transition(StateSuspended, err); terr != nil {
			return
		}
		m.scheduleRetry(StateSuspended)
		return
	}

	target := StateDisconnected
	if from == StateSuspended {
		target = StateSuspended
	}
	if _, terr := c.transition(target, err); terr != nil {
		return
	}
	m.scheduleRetry(target)
}

// scheduleRetry arms a timer per the retry policy table in spec.md §4.6,
// re-entering Connecting on the loop goroutine when it fires.
func (m *connectionManager) scheduleRetry(from State) {
	c := m.c
	timeout := c.opts.ReconnectTimeoutDisconnected
	previous := StateDisconnected
	if from == StateSuspended || c.state.state() == StateSuspended {
		timeout = c.opts.ReconnectTimeoutSuspended
		previous = StateSuspended
	}

	attempt := m.attemptID
	m.cancelRetryTimer = c.scheduler.AfterDelay(timeout, func() {
		c.enqueue(func() { m.retry(attempt, previous) })
	})
}

func (m *connectionManager) retry(attempt uint64, previous State) {
	if attempt != m.attemptID {
		return
	}
	c := m.c
	if c.state.state() != StateDisconnected && c.state.state() != StateSuspended {
		return
	}
	if _, err := c.transition(StateConnecting, nil); err != nil {
		return
	}
	m.beginAttempt(previous)
}

// onConnected resets retry accounting and kicks the outgoing dispatcher
// so anything queued while disconnected starts flowing immediately.
func (m *connectionManager) onConnected() {
	m.retriesDisconnected = 0
	m.retriesSuspended = 0
	m.cancelPendingTimer()
	m.c.outgoing.drain()
}

// onDisconnected is invoked from the incoming dispatcher for a
// server-initiated Disconnected frame (as opposed to a transport-level
// failure, handled by onAttemptFailed).
func (m *connectionManager) onDisconnected() {
	m.closeTransport()
	m.scheduleRetry(StateDisconnected)
}

// onTerminal handles Closed/Failed: stop retrying and release the
// transport. Called by the incoming dispatcher and by closeConnection's
// deadline handling.
func (m *connectionManager) onTerminal() {
	m.cancelPendingTimer()
	m.closeTransport()
	m.c.ack.failAll(newError(ErrKindConnectionReset, "connection terminated"))
}

func (m *connectionManager) onTransportClosed() {
	current := m.c.state.state()
	if current == StateClosing {
		if _, err := m.c.transition(StateClosed, nil); err == nil {
			m.onTerminal()
		}
		return
	}
	if current == StateClosed || current == StateFailed {
		return
	}
	m.onAttemptFailed(newError(ErrKindConnectionReset, "transport closed unexpectedly"))
}

func (m *connectionManager) cancelPendingTimer() {
	if m.cancelRetryTimer != nil {
		m.cancelRetryTimer()
		m.cancelRetryTimer = nil
	}
}

func (m *connectionManager) closeTransport() {
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
}

// closeConnection drives the Closing sequence: send a Close frame if
// Connected (otherwise just release any transport), then wait up to Options.CloseTimeout for the
// server's Closed frame before forcing local closure (spec.md §4.7).
func (m *connectionManager) closeConnection() error {
	c := m.c
	current := c.state.state()
	if current == StateClosed || current == StateFailed {
		return nil
	}
	if current == StateInitialized {
		_, err := c.transition(StateClosed, nil)
		return err
	}

	m.cancelPendingTimer()

	if m.transport != nil && current == StateConnected {
		// Close is ack-required like any other frame (spec.md §3/§4.6): queue
		// it and let the outgoing dispatcher assign it a MsgSerial and a
		// pending-queue entry (I3) before the write, rather than writing it
		// directly to the transport.
		c.outQueue.push(&ProtocolMessage{Action: ActionClose})
		c.outgoing.drain()
	} else {
		m.closeTransport()
	}

	if _, err := c.transition(StateClosing, nil); err != nil {
		return err
	}

	attempt := m.attemptID
	m.cancelCloseTimer = c.scheduler.AfterDelay(c.opts.CloseTimeout, func() {
		c.enqueue(func() { m.forceClose(attempt) })
	})
	return nil
}

func (m *connectionManager) forceClose(attempt uint64) {
	if attempt != m.attemptID {
		return
	}
	if m.c.state.state() != StateClosing {
		return
	}
	if _, err := m.c.transition(StateClosed, nil); err == nil {
		m.c.resume.clear()
		m.onTerminal()
	}
}
