package realtime

import "testing"

func TestAckTrackerTrackUsesSuppliedAwaiter(t *testing.T) {
	tr := newAckTracker(nil)
	msg := &ProtocolMessage{Action: ActionMessage}
	mine := newPendingAwaiter()

	got := tr.track(0, msg, mine)
	if got != mine {
		t.Fatalf("track should return the supplied awaiter, not a fresh one")
	}
}

func TestAckTrackerTrackCreatesAwaiterWhenNilSupplied(t *testing.T) {
	tr := newAckTracker(nil)
	got := tr.track(0, &ProtocolMessage{}, nil)
	if got == nil {
		t.Fatalf("expected a fresh awaiter when none supplied")
	}
}

func TestAckTrackerHandleAckResolvesAwaiter(t *testing.T) {
	tr := newAckTracker(nil)
	aw := newPendingAwaiter()
	tr.track(0, &ProtocolMessage{}, aw)

	if err := tr.handleAck(ackFrame(0, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-aw.wait():
	default:
		t.Fatalf("expected the awaiter to resolve")
	}
	if aw.Err() != nil {
		t.Fatalf("expected a successful ack, got error %v", aw.Err())
	}
}

func TestAckTrackerHandleNackRejectsAwaiter(t *testing.T) {
	tr := newAckTracker(nil)
	aw := newPendingAwaiter()
	tr.track(0, &ProtocolMessage{}, aw)

	nack := ackFrame(0, 1)
	nack.Action = ActionNack
	nack.Error = &ErrorInfo{Message: "rejected"}
	if err := tr.handleNack(nack); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aw.Err() == nil {
		t.Fatalf("expected the awaiter to reject with an error")
	}
}

func TestAckTrackerHandleAckUnknownSerialIsProtocolViolation(t *testing.T) {
	tr := newAckTracker(nil)
	if err := tr.handleAck(ackFrame(9, 1)); err == nil {
		t.Fatalf("expected a protocol violation for an ack against an empty pending queue")
	}
}

func TestAckTrackerResetGenerationRejectsEverythingWithConnectionReset(t *testing.T) {
	tr := newAckTracker(nil)
	aw1, aw2 := newPendingAwaiter(), newPendingAwaiter()
	tr.track(0, &ProtocolMessage{}, aw1)
	tr.track(1, &ProtocolMessage{}, aw2)

	tr.resetGeneration()

	for _, aw := range []*pendingAwaiter{aw1, aw2} {
		var e *Error
		if !asError(aw.Err(), &e) || e.Kind != ErrKindConnectionReset {
			t.Fatalf("expected ConnectionReset, got %v", aw.Err())
		}
	}
	if tr.pending.len() != 0 {
		t.Fatalf("expected the pending queue drained")
	}
}

func TestAckTrackerFailAllRejectsWithSuppliedError(t *testing.T) {
	tr := newAckTracker(nil)
	aw := newPendingAwaiter()
	tr.track(0, &ProtocolMessage{}, aw)

	boom := newError(ErrKindServerError, "terminal")
	tr.failAll(boom)
	if aw.Err() != boom {
		t.Fatalf("expected the supplied terminal error, got %v", aw.Err())
	}
}

func TestAckTrackerDrainForReplayPreservesSerialAndOrder(t *testing.T) {
	tr := newAckTracker(nil)
	s0, s1 := int64(0), int64(1)
	m0 := &ProtocolMessage{Action: ActionMessage, Channel: "a", MsgSerial: &s0}
	m1 := &ProtocolMessage{Action: ActionMessage, Channel: "b", MsgSerial: &s1}
	tr.track(0, m0, newPendingAwaiter())
	tr.track(1, m1, newPendingAwaiter())

	replay := tr.drainForReplay()
	if len(replay) != 2 || replay[0].msg != m0 || replay[1].msg != m1 {
		t.Fatalf("expected both frames replayed in order with serials intact, got %#v", replay)
	}
	if *replay[0].msg.MsgSerial != 0 || *replay[1].msg.MsgSerial != 1 {
		t.Fatalf("expected serials preserved across replay")
	}
	if tr.pending.len() != 0 {
		t.Fatalf("expected the pending queue drained after replay")
	}
}
