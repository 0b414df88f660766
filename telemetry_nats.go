package realtime

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// natsTelemetry mirrors connection lifecycle events onto a NATS subject
// for fleet-wide observability, per SPEC_FULL.md §4.6/A4. This is a
// one-way publish, never a message bus backend for C3 (SPEC_FULL.md §4.2
// explains the boundary).
//
// Grounded on go-server-2/server.go's
// nats.Connect(url, nats.MaxReconnects(5), nats.ReconnectWait(2*time.Second))
// call; the subscribe-to-wildcard half of that method has no analogue
// here since we publish rather than consume.
type natsTelemetry struct {
	conn    *nats.Conn
	subject string
}

// newNATSTelemetry dials url and returns a natsTelemetry that publishes
// to "realtime.<clientID>.state". A nil return with a non-nil error
// means telemetry is unavailable; callers should log and continue
// without it rather than fail the connection.
func newNATSTelemetry(url, clientID string) (*natsTelemetry, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, wrapError(ErrKindConnectionError, err, "connect telemetry nats %s", url)
	}
	return &natsTelemetry{
		conn:    conn,
		subject: fmt.Sprintf("realtime.%s.state", clientID),
	}, nil
}

func (t *natsTelemetry) publishTransition(change StateChange) {
	if t == nil || t.conn == nil {
		return
	}
	payload := fmt.Sprintf(`{"from":%q,"to":%q,"generation":%d}`,
		change.Previous, change.Current, change.Generation)
	// Best-effort: telemetry must never affect the connection's own
	// behavior, so publish errors are dropped rather than surfaced.
	_ = t.conn.Publish(t.subject, []byte(payload))
}

func (t *natsTelemetry) close() {
	if t != nil && t.conn != nil {
		t.conn.Close()
	}
}
