package realtime

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// wsTransport is the default Transport, dialing out over WebSocket with
// gobwas/ws. Grounded on go-server-2/server.go's ws.UpgradeHTTP /
// wsutil.ReadClientData / wsutil.WriteServerMessage usage, inverted here
// from server-accept to client-dial (DESIGN.md).
type wsTransport struct {
	scheme string // "ws" or "wss"
	path   string

	mu     sync.Mutex
	conn   net.Conn
	events chan TransportEvent
	closed bool
}

// newWSTransport builds a TransportFactory for the given path (e.g.
// "/") and TLS preference.
func newWSTransport(path string, tls bool) TransportFactory {
	scheme := "ws"
	if tls {
		scheme = "wss"
	}
	return func() Transport {
		return &wsTransport{scheme: scheme, path: path}
	}
}

func (t *wsTransport) Open(ctx context.Context, host string, query map[string]string) (<-chan TransportEvent, error) {
	u := url.URL{Scheme: t.scheme, Host: host, Path: t.path}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	conn, _, _, err := ws.Dial(ctx, u.String())
	if err != nil {
		return nil, wrapError(ErrKindConnectionError, err, "dial %s", host)
	}

	t.mu.Lock()
	t.conn = conn
	t.events = make(chan TransportEvent, 32)
	t.closed = false
	events := t.events
	t.mu.Unlock()

	events <- TransportEvent{Kind: TransportOpen}

	go t.readLoop(conn, events)

	return events, nil
}

func (t *wsTransport) readLoop(conn net.Conn, events chan TransportEvent) {
	for {
		msg, op, err := wsutil.ReadServerData(conn)
		if err != nil {
			t.emitClose(events, err)
			return
		}
		switch op {
		case ws.OpText, ws.OpBinary:
			// Inbound frames are processed strictly in arrival order and
			// never silently dropped (spec.md §5): losing an Ack/Nack here
			// would leave a Send() awaiter unresolvable forever. Block
			// rather than apply the teacher's slow-consumer drop policy,
			// which only ever applied to outbound fan-out.
			events <- TransportEvent{Kind: TransportMessage, Payload: msg}
		case ws.OpClose:
			t.emitClose(events, io.EOF)
			return
		}
	}
}

func (t *wsTransport) emitClose(events chan TransportEvent, err error) {
	t.mu.Lock()
	already := t.closed
	t.closed = true
	t.mu.Unlock()
	if already {
		return
	}
	if err != nil && !errors.Is(err, io.EOF) {
		events <- TransportEvent{Kind: TransportError, Err: err}
	}
	events <- TransportEvent{Kind: TransportClose}
	close(events)
}

func (t *wsTransport) Send(frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return newError(ErrKindConnectionError, "send on unopened transport")
	}
	if err := wsutil.WriteClientMessage(conn, ws.OpBinary, frame); err != nil {
		return wrapError(ErrKindConnectionError, err, "write frame")
	}
	return nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.closed = true
	t.mu.Unlock()
	if conn == nil || closed {
		return nil
	}
	return conn.Close()
}
