package realtime

import (
	"context"
	"errors"
	"testing"
	"time"
)

// pendingDepth reads the ack tracker's pending-queue depth synchronously
// off the loop goroutine.
func pendingDepth(c *Client) int {
	resCh := make(chan int, 1)
	c.enqueue(func() { resCh <- c.ack.pending.len() })
	return <-resCh
}

// TestOutgoingDispatcherDrainRollsBackTrackOnSendFailure covers the
// ordering fix in dispatch_outgoing.go: a frame is appended to the
// pending queue before its write (I3), but if the write itself fails the
// pending entry and any freshly assigned serial must be undone, or the
// frame would be double-queued once the manager's own transport-error
// handling drains-for-replay whatever is still pending.
func TestOutgoingDispatcherDrainRollsBackTrackOnSendFailure(t *testing.T) {
	sched := newFakeScheduler()
	factory := &scriptedFactory{}
	c := newScenarioClient(t, sched, factory)

	connDone := make(chan error, 1)
	go func() { connDone <- c.Connect(context.Background()) }()
	tr1 := waitForAttempt(t, factory, 1)
	deliverMessage(c, tr1, connectedFrame("conn-1", "resume-key"))
	if err := <-connDone; err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	tr1.mu.Lock()
	tr1.sendErr = errors.New("write failed")
	tr1.mu.Unlock()

	msg := &ProtocolMessage{Action: ActionMessage, Channel: "chat", Payload: []byte("m")}
	sendDone := make(chan error, 1)
	go func() { sendDone <- c.Send(context.Background(), msg) }()

	waitFor(t, time.Second, func() bool { return c.State() == StateDisconnected })

	if depth := pendingDepth(c); depth != 0 {
		t.Fatalf("expected the failed write's pending entry rolled back, got depth %d", depth)
	}
	if msg.MsgSerial != nil {
		t.Fatalf("expected the freshly assigned serial rolled back, got %v", *msg.MsgSerial)
	}
	if queueLen(c) != 1 {
		t.Fatalf("expected the frame requeued on the outgoing queue, got depth %d", queueLen(c))
	}

	sched.advance(c.opts.ReconnectTimeoutDisconnected)
	tr2 := waitForAttempt(t, factory, 2)
	deliverMessage(c, tr2, connectedFrame("conn-1", "resume-key"))
	waitFor(t, time.Second, func() bool { return c.State() == StateConnected })

	frames := waitForSentCount(t, tr2, 1)
	decoded, err := c.codec.Decode(frames[0])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.MsgSerial == nil || *decoded.MsgSerial != 0 {
		t.Fatalf("expected the requeued frame assigned serial 0 on its first successful send, got %v", decoded.MsgSerial)
	}

	deliverMessage(c, tr2, ackFrame(0, 1))
	if err := <-sendDone; err != nil {
		t.Fatalf("Send should resolve once the requeued frame is acked: %v", err)
	}
}
