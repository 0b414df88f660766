package realtime

import "context"

// TransportEvent is delivered to Transport's owner (the manager) as the
// byte-framed duplex stream progresses through open/message/close/error,
// per spec.md §1's "treated as an external collaborator" framing for the
// transport's own byte-framing, while its lifecycle is still ours to
// drive.
type TransportEvent struct {
	Kind    TransportEventKind
	Payload []byte
	Err     error
}

type TransportEventKind int

const (
	TransportOpen TransportEventKind = iota
	TransportMessage
	TransportClose
	TransportError
)

// Transport is the duplex frame stream contract from spec.md §1/§6: it
// opens a connection to a host, emits events as they happen, and accepts
// raw frames to write. Implementations are not required to be safe for
// concurrent Send calls from multiple goroutines; the manager only ever
// calls Send from the loop goroutine.
type Transport interface {
	// Open dials host and begins delivering TransportEvents on the
	// returned channel until Close is called or the connection dies.
	Open(ctx context.Context, host string, query map[string]string) (<-chan TransportEvent, error)
	Send(frame []byte) error
	Close() error
}

// TransportFactory builds a Transport for a given host dial. Injected so
// tests can substitute a fake transport (spec.md §8 scenarios all drive a
// fake transport).
type TransportFactory func() Transport
