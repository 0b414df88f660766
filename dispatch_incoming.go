package realtime

import (
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// incomingDispatcher applies the nine-step handling of spec.md §4.5 to
// every inbound frame, in order, before publishing it on the incoming
// bus for channel/presence subscribers (C6).
type incomingDispatcher struct {
	c *Client
}

func newIncomingDispatcher(c *Client) *incomingDispatcher {
	return &incomingDispatcher{c: c}
}

func (d *incomingDispatcher) handle(msg *ProtocolMessage) {
	c := d.c
	log := component(c.logger, "dispatch.incoming")

	// Step 1: track the last connection-level serial seen, regardless of
	// action, so a subsequent resume request carries an up-to-date cursor.
	if msg.ConnectionSerial != nil {
		c.resume.LastConnectionSerial = *msg.ConnectionSerial
	}

	switch msg.Action {
	case ActionConnected:
		d.handleConnected(msg)

	case ActionAck:
		if err := c.ack.handleAck(msg); err != nil {
			log.Warn().Err(err).Interface("serial", msg.MsgSerial).Int("count", msg.Count).
				Msg("ack violates pending queue contiguity")
		}

	case ActionNack:
		if err := c.ack.handleNack(msg); err != nil {
			log.Warn().Err(err).Interface("serial", msg.MsgSerial).Int("count", msg.Count).
				Msg("nack violates pending queue contiguity")
		}

	case ActionError:
		if msg.Channel == "" {
			d.handleConnectionError(msg)
			return
		}
		c.inBus.publish(EventProtocolMessage, msg, d.onBusHandlerError)

	case ActionDisconnected:
		d.handleDisconnected(msg)

	case ActionClosed:
		d.handleClosed(msg)

	case ActionHeartbeat:
		if c.metrics != nil {
			c.metrics.heartbeatsTotal.Inc()
		}
		c.inBus.publish(EventProtocolMessage, msg, d.onBusHandlerError)

	case actionUnknown:
		log.Warn().Msg("ignoring inbound frame with unknown action")

	default:
		c.inBus.publish(EventProtocolMessage, msg, d.onBusHandlerError)
	}
}

// handleConnected implements step 2: capture connection identity,
// transition to Connected (bumping the generation), then publish.
func (d *incomingDispatcher) handleConnected(msg *ProtocolMessage) {
	c := d.c
	log := component(c.logger, "dispatch.incoming")

	requestedResume := c.resume.present()
	requestedRecover := c.recoverInfo != nil && c.recoverInfo.available()
	priorKey := c.resume.Key

	c.identity = connIdentity{id: msg.ConnectionID, key: msg.ConnectionKey, has: true}
	if msg.ConnectionDetails != nil {
		c.details = msg.ConnectionDetails
		if msg.ConnectionDetails.MaxInboundRate > 0 {
			c.limiter.SetLimit(rate.Limit(msg.ConnectionDetails.MaxInboundRate))
		}
	}

	// A resume request only truly succeeded if the server handed back the
	// same connection key; otherwise this is a fresh session and anything
	// carried over from the old one (replayed frames, the serial
	// sequence) is stale (spec.md §4.8 "generation change ... rejected
	// with ConnectionReset").
	resumeHonored := requestedResume && msg.ConnectionKey != "" && msg.ConnectionKey == priorKey
	if requestedResume && !resumeHonored {
		d.invalidateStaleSession(log)
	}

	c.resume.set(msg.ConnectionKey, c.resume.LastConnectionSerial)
	if requestedRecover {
		c.recoverInfo.consume()
	}

	if _, err := c.transition(StateConnected, nil); err != nil {
		log.Warn().Err(err).Msg("connected frame arrived in an unexpected state")
		return
	}
	c.manager.onConnected()
	c.inBus.publish(EventProtocolMessage, msg, d.onBusHandlerError)
}

// invalidateStaleSession rejects anything left over from a prior
// connection generation once a requested resume was not honored: frames
// replayed into the outgoing queue after the old disconnect, plus any
// pending entry that, despite the invariant, wasn't drained along with
// it.
func (d *incomingDispatcher) invalidateStaleSession(log zerolog.Logger) {
	c := d.c
	resetErr := newError(ErrKindConnectionReset, "resume not honored by server; session reset")

	for _, stale := range c.outQueue.extractStaleReplays() {
		if aw, ok := c.sendAwaiters[stale]; ok {
			aw.reject(resetErr)
			delete(c.sendAwaiters, stale)
		}
	}
	c.ack.resetGeneration()
	c.serials.reset()
	log.Info().Msg("resume not honored by server, stale session state discarded")
}

// handleConnectionError implements step 5: a connection-level Error
// frame (no channel) sets the failure reason and transitions to Failed.
func (d *incomingDispatcher) handleConnectionError(msg *ProtocolMessage) {
	c := d.c
	err := wrapError(ErrKindServerError, msg.Error, "connection error")
	c.ack.failAll(err)
	if c.recoverInfo != nil && c.recoverInfo.available() {
		c.recoverInfo.consume()
	}
	if _, terr := c.transition(StateFailed, err); terr != nil {
		component(c.logger, "dispatch.incoming").Warn().Err(terr).Msg("error frame arrived in an unexpected state")
	}
	c.manager.onTerminal()
	c.inBus.publish(EventProtocolMessage, msg, d.onBusHandlerError)
}

// handleDisconnected implements step 6: transition to Disconnected.
// ResumeInfo survives unless the frame's attached error marks the
// connection unresumable (spec.md §3 ResumeInfo clearing conditions).
func (d *incomingDispatcher) handleDisconnected(msg *ProtocolMessage) {
	c := d.c
	var terr error
	if msg.Error != nil {
		terr = wrapError(ErrKindServerError, msg.Error, "disconnected")
	}
	if msg.Error != nil && msg.Error.StatusCode != 0 && msg.Error.StatusCode >= 400 && msg.Error.StatusCode < 500 {
		c.resume.clear()
	}
	if _, err := c.transition(StateDisconnected, terr); err != nil {
		component(c.logger, "dispatch.incoming").Warn().Err(err).Msg("disconnected frame arrived in an unexpected state")
		return
	}
	c.manager.onDisconnected()
	c.inBus.publish(EventProtocolMessage, msg, d.onBusHandlerError)
}

// handleClosed implements step 7.
func (d *incomingDispatcher) handleClosed(msg *ProtocolMessage) {
	c := d.c
	c.resume.clear()
	if c.recoverInfo != nil && c.recoverInfo.available() {
		c.recoverInfo.consume()
	}
	if _, err := c.transition(StateClosed, nil); err != nil {
		component(c.logger, "dispatch.incoming").Warn().Err(err).Msg("closed frame arrived in an unexpected state")
		return
	}
	c.manager.onTerminal()
	c.inBus.publish(EventProtocolMessage, msg, d.onBusHandlerError)
}

func (d *incomingDispatcher) onBusHandlerError(err error) {
	component(d.c.logger, "dispatch.incoming").Warn().Err(err).Msg("incoming bus handler failed")
}
