package realtime

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is the user-facing connection facade (C8): it aggregates the
// message buses, queues, state machine, and manager, and is the sole
// owner of connection lifecycle state (spec.md §3 "Lifecycle ownership").
//
// All of that state is touched only by the loop goroutine
// (SPEC_FULL.md §5); every other goroutine (transport reader, scheduler
// timers, auth fetches) communicates into it exclusively through cmds,
// which is why none of the fields below are guarded by a mutex.
type Client struct {
	opts      Options
	codec     Codec
	scheduler Scheduler
	logger    zerolog.Logger
	metrics   *metricsRegistry
	telemetry *natsTelemetry
	sampler   *resourceSampler

	cmds   chan func()
	stopCh chan struct{}
	stop   sync.Once

	// loop-goroutine-only state
	state       *stateMachine
	outQueue    outgoingQueue
	ack         *ackTracker
	serials     *serialCounter
	outBus      *bus
	inBus       *bus
	resume      ResumeInfo
	recoverInfo *RecoverInfo
	details     *ConnectionDetails
	identity    connIdentity
	limiter     *rate.Limiter
	sendAwaiters map[*ProtocolMessage]*pendingAwaiter

	manager  *connectionManager
	outgoing *outgoingDispatcher
	incoming *incomingDispatcher

	waiters       []*deferredWait
	stateHandlers []stateHandlerEntry
	nextHandlerID uint64
}

type connIdentity struct {
	id  string
	key string
	has bool
}

type stateHandlerEntry struct {
	id uint64
	fn func(StateChange)
}

// NewClient constructs a Client in the Initialized state. Connect() must
// be called explicitly; construction never opens the realtime transport,
// though it dials NATS when Options.TelemetryNATSURL is set.
func NewClient(opts Options) (*Client, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	recoverInfo, err := parseRecoverOption(opts.Recover)
	if err != nil {
		return nil, err
	}

	logger := newLogger(opts.LogLevel)
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	metrics := newMetricsRegistry(opts.Registerer)

	var telemetry *natsTelemetry
	if opts.TelemetryNATSURL != "" {
		t, terr := newNATSTelemetry(opts.TelemetryNATSURL, opts.ClientID)
		if terr != nil {
			component(logger, "telemetry").Warn().Err(terr).Msg("telemetry unavailable, continuing without it")
		} else {
			telemetry = t
		}
	}

	var sampler *resourceSampler
	if opts.SampleResourceUsage {
		sampler = newResourceSampler()
	}

	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = NewScheduler()
	}

	transportFactory := opts.TransportFactory
	if transportFactory == nil {
		transportFactory = newWSTransport(opts.WSPath, !opts.DisableTLS)
	}

	c := &Client{
		opts:        opts,
		codec:       codecForFormat(opts.Format),
		scheduler:   scheduler,
		logger:      logger,
		metrics:     metrics,
		telemetry:   telemetry,
		sampler:     sampler,
		cmds:        make(chan func(), 64),
		stopCh:      make(chan struct{}),
		state:       newStateMachine(),
		ack:         newAckTracker(metrics),
		serials:     newSerialCounter(),
		outBus:      newBus(),
		inBus:       newBus(),
		recoverInfo: recoverInfo,
		limiter:     rate.NewLimiter(rate.Limit(defaultOutboundRate), defaultOutboundBurst),
		sendAwaiters: make(map[*ProtocolMessage]*pendingAwaiter),
	}
	c.manager = newConnectionManager(c, transportFactory)
	c.outgoing = newOutgoingDispatcher(c)
	c.incoming = newIncomingDispatcher(c)

	if sampler != nil {
		go sampler.run(defaultResourceSampleInterval, c.stopCh)
	}

	go c.loop()

	return c, nil
}

const (
	defaultOutboundRate  = 50 // frames/sec, before ConnectionDetails.MaxInboundRate is known
	defaultOutboundBurst = 10
)

// loop is the single logical task spec.md §5 describes: every mutation
// of state/queues/counters happens here, serialized through cmds.
func (c *Client) loop() {
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.stopCh:
			return
		}
	}
}

// enqueue schedules fn to run on the loop goroutine. Safe to call from
// any goroutine, including the loop goroutine itself (though callers
// already on the loop should usually just call directly to avoid an
// unnecessary hop).
func (c *Client) enqueue(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.stopCh:
	}
}

// shutdownLoop stops the loop goroutine and any background samplers.
// Called once Closed/Failed is final and no more work will be scheduled.
func (c *Client) shutdownLoop() {
	c.stop.Do(func() {
		close(c.stopCh)
		if c.telemetry != nil {
			c.telemetry.close()
		}
	})
}

// onStateChange registers fn to be invoked synchronously (on the loop
// goroutine) for every StateChange, returning an unsubscribe token.
func (c *Client) onStateChange(fn func(StateChange)) uint64 {
	c.nextHandlerID++
	id := c.nextHandlerID
	c.stateHandlers = append(c.stateHandlers, stateHandlerEntry{id: id, fn: fn})
	return id
}

func (c *Client) offStateChange(id uint64) {
	for i, e := range c.stateHandlers {
		if e.id == id {
			c.stateHandlers = append(c.stateHandlers[:i], c.stateHandlers[i+1:]...)
			return
		}
	}
}

// transition is the single choke point for moving the state machine:
// it records metrics/telemetry, resolves deferred waiters, and notifies
// state-change listeners, in that order, all synchronously on the loop
// goroutine (spec.md §5 "state-change listeners receive events in
// transition order").
func (c *Client) transition(next State, err error) (StateChange, error) {
	change, terr := c.state.transition(next, err)
	if terr != nil {
		return StateChange{}, terr
	}

	c.metrics.recordTransition(change)
	c.telemetry.publishTransition(change)

	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.resolve(change) {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining

	for _, h := range c.stateHandlers {
		h.fn(change)
	}

	return change, nil
}
