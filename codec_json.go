package realtime

import "encoding/json"

// jsonCodec implements Codec using the standard library's JSON encoding,
// the format the teacher already uses for its /health and /stats payloads.
type jsonCodec struct{}

func newJSONCodec() Codec { return jsonCodec{} }

func (jsonCodec) Name() string { return "json" }

// wireMessage mirrors ProtocolMessage but encodes Action as its string
// name, matching the wire protocol's textual action field, and lets
// unrecognized actions round-trip through Decode as actionUnknown instead
// of failing the unmarshal.
type wireMessage struct {
	Action            string             `json:"action"`
	MsgSerial         *int64             `json:"msgSerial,omitempty"`
	ConnectionSerial  *int64             `json:"connectionSerial,omitempty"`
	ConnectionID      string             `json:"connectionId,omitempty"`
	ConnectionKey     string             `json:"connectionKey,omitempty"`
	ConnectionDetails *ConnectionDetails `json:"connectionDetails,omitempty"`
	Channel           string             `json:"channel,omitempty"`
	Count             int                `json:"count,omitempty"`
	Error             *ErrorInfo         `json:"error,omitempty"`
	Payload           []byte             `json:"payload,omitempty"`
}

var actionNames = map[Action]string{
	ActionHeartbeat:    "heartbeat",
	ActionAck:          "ack",
	ActionConnect:      "connect",
	ActionConnected:    "connected",
	ActionDisconnect:   "disconnect",
	ActionDisconnected: "disconnected",
	ActionClose:        "close",
	ActionClosed:       "closed",
	ActionError:        "error",
	ActionAttach:       "attach",
	ActionAttached:     "attached",
	ActionDetach:       "detach",
	ActionDetached:     "detached",
	ActionPresence:     "presence",
	ActionMessage:      "message",
	ActionSync:         "sync",
	ActionNack:         "nack",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()

func (jsonCodec) Encode(m *ProtocolMessage) ([]byte, error) {
	w := wireMessage{
		Action:            actionNames[m.Action],
		MsgSerial:         m.MsgSerial,
		ConnectionSerial:  m.ConnectionSerial,
		ConnectionID:      m.ConnectionID,
		ConnectionKey:     m.ConnectionKey,
		ConnectionDetails: m.ConnectionDetails,
		Channel:           m.Channel,
		Count:             m.Count,
		Error:             m.Error,
		Payload:           m.Payload,
	}
	return json.Marshal(w)
}

func (jsonCodec) Decode(b []byte) (*ProtocolMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	action, ok := actionsByName[w.Action]
	if !ok {
		action = actionUnknown
	}
	return &ProtocolMessage{
		Action:            action,
		MsgSerial:         w.MsgSerial,
		ConnectionSerial:  w.ConnectionSerial,
		ConnectionID:      w.ConnectionID,
		ConnectionKey:     w.ConnectionKey,
		ConnectionDetails: w.ConnectionDetails,
		Channel:           w.Channel,
		Count:             w.Count,
		Error:             w.Error,
		Payload:           w.Payload,
	}, nil
}
