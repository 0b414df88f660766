package realtime

// Action identifies the kind of a ProtocolMessage, mirroring the realtime
// wire protocol's action enum.
type Action int

const (
	ActionHeartbeat Action = iota
	ActionAck
	ActionConnect
	ActionConnected
	ActionDisconnect
	ActionDisconnected
	ActionClose
	ActionClosed
	ActionError
	ActionAttach
	ActionAttached
	ActionDetach
	ActionDetached
	ActionPresence
	ActionMessage
	ActionSync
	ActionNack

	// actionUnknown is never assigned on the wire; decode falls back to it
	// for any action value the codec doesn't recognize.
	actionUnknown Action = -1
)

func (a Action) String() string {
	switch a {
	case ActionHeartbeat:
		return "heartbeat"
	case ActionAck:
		return "ack"
	case ActionConnect:
		return "connect"
	case ActionConnected:
		return "connected"
	case ActionDisconnect:
		return "disconnect"
	case ActionDisconnected:
		return "disconnected"
	case ActionClose:
		return "close"
	case ActionClosed:
		return "closed"
	case ActionError:
		return "error"
	case ActionAttach:
		return "attach"
	case ActionAttached:
		return "attached"
	case ActionDetach:
		return "detach"
	case ActionDetached:
		return "detached"
	case ActionPresence:
		return "presence"
	case ActionMessage:
		return "message"
	case ActionSync:
		return "sync"
	case ActionNack:
		return "nack"
	default:
		return "unknown"
	}
}

// ackRequired is a pure function of Action, per spec.md §4.1.
func (a Action) ackRequired() bool {
	switch a {
	case ActionMessage, ActionPresence, ActionClose, ActionAttach, ActionDetach:
		return true
	default:
		return false
	}
}

// ErrorInfo is the error payload optionally attached to a ProtocolMessage
// (e.g. on Nack or a connection-level Error frame).
type ErrorInfo struct {
	Code       int    `json:"code,omitempty" msgpack:"code,omitempty"`
	StatusCode int    `json:"statusCode,omitempty" msgpack:"statusCode,omitempty"`
	Message    string `json:"message,omitempty" msgpack:"message,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// ConnectionDetails carries server-advertised limits received on a
// Connected frame. See SPEC_FULL.md §3.
type ConnectionDetails struct {
	ClientID           string `json:"clientId,omitempty" msgpack:"clientId,omitempty"`
	ConnectionKey      string `json:"connectionKey,omitempty" msgpack:"connectionKey,omitempty"`
	MaxMessageSize     int64  `json:"maxMessageSize,omitempty" msgpack:"maxMessageSize,omitempty"`
	MaxFrameSize       int64  `json:"maxFrameSize,omitempty" msgpack:"maxFrameSize,omitempty"`
	MaxInboundRate     int    `json:"maxInboundRate,omitempty" msgpack:"maxInboundRate,omitempty"`
	ConnectionStateTTL int64  `json:"connectionStateTtl,omitempty" msgpack:"connectionStateTtl,omitempty"`
}

// ProtocolMessage is the typed record carried over the wire in both
// directions. See spec.md §3.
type ProtocolMessage struct {
	Action            Action             `json:"action" msgpack:"action"`
	MsgSerial          *int64             `json:"msgSerial,omitempty" msgpack:"msgSerial,omitempty"`
	ConnectionSerial   *int64             `json:"connectionSerial,omitempty" msgpack:"connectionSerial,omitempty"`
	ConnectionID       string             `json:"connectionId,omitempty" msgpack:"connectionId,omitempty"`
	ConnectionKey      string             `json:"connectionKey,omitempty" msgpack:"connectionKey,omitempty"`
	ConnectionDetails  *ConnectionDetails `json:"connectionDetails,omitempty" msgpack:"connectionDetails,omitempty"`
	Channel            string             `json:"channel,omitempty" msgpack:"channel,omitempty"`
	Count              int                `json:"count,omitempty" msgpack:"count,omitempty"`
	Error              *ErrorInfo         `json:"error,omitempty" msgpack:"error,omitempty"`
	Payload            []byte             `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// AckRequired reports whether this message requires a server Ack/Nack.
func (m *ProtocolMessage) AckRequired() bool {
	return m.Action.ackRequired()
}

// Codec encodes and decodes ProtocolMessage values for the negotiated wire
// format. decode(encode(m)) must equal m for every m with a known action
// (P5 in spec.md §8).
type Codec interface {
	Name() string
	Encode(m *ProtocolMessage) ([]byte, error)
	Decode(b []byte) (*ProtocolMessage, error)
}
