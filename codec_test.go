package realtime

import "testing"

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := newJSONCodec()
	serial := int64(5)
	connSerial := int64(9)
	msg := &ProtocolMessage{
		Action:           ActionMessage,
		MsgSerial:        &serial,
		ConnectionSerial: &connSerial,
		ConnectionID:     "conn-1",
		ConnectionKey:    "key-1",
		Channel:          "chat",
		Count:            2,
		Payload:          []byte("hello"),
	}

	frame, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	got, err := codec.Decode(frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	assertMessagesEqual(t, msg, got)
}

func TestJSONCodecUnknownActionDecodesToUnknown(t *testing.T) {
	codec := newJSONCodec()
	got, err := codec.Decode([]byte(`{"action":"not-a-real-action"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Action != actionUnknown {
		t.Fatalf("expected actionUnknown, got %v", got.Action)
	}
}

func TestMsgpackCodecRoundTrip(t *testing.T) {
	codec := newMsgpackCodec()
	serial := int64(3)
	msg := &ProtocolMessage{
		Action:    ActionAck,
		MsgSerial: &serial,
		Count:     4,
		Error:     &ErrorInfo{Code: 1, StatusCode: 500, Message: "oops"},
	}

	frame, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	got, err := codec.Decode(frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	assertMessagesEqual(t, msg, got)
}

func TestCodecForFormat(t *testing.T) {
	if codecForFormat("msgpack").Name() != "msgpack" {
		t.Fatalf("expected msgpack codec for format msgpack")
	}
	if codecForFormat("json").Name() != "json" {
		t.Fatalf("expected json codec for format json")
	}
	if codecForFormat("").Name() != "json" {
		t.Fatalf("expected json codec as the default")
	}
}

func assertMessagesEqual(t *testing.T, want, got *ProtocolMessage) {
	t.Helper()
	if want.Action != got.Action {
		t.Errorf("Action: want %v got %v", want.Action, got.Action)
	}
	if (want.MsgSerial == nil) != (got.MsgSerial == nil) {
		t.Errorf("MsgSerial nilness mismatch: want %v got %v", want.MsgSerial, got.MsgSerial)
	} else if want.MsgSerial != nil && *want.MsgSerial != *got.MsgSerial {
		t.Errorf("MsgSerial: want %d got %d", *want.MsgSerial, *got.MsgSerial)
	}
	if want.ConnectionID != got.ConnectionID {
		t.Errorf("ConnectionID: want %q got %q", want.ConnectionID, got.ConnectionID)
	}
	if want.ConnectionKey != got.ConnectionKey {
		t.Errorf("ConnectionKey: want %q got %q", want.ConnectionKey, got.ConnectionKey)
	}
	if want.Channel != got.Channel {
		t.Errorf("Channel: want %q got %q", want.Channel, got.Channel)
	}
	if want.Count != got.Count {
		t.Errorf("Count: want %d got %d", want.Count, got.Count)
	}
	if string(want.Payload) != string(got.Payload) {
		t.Errorf("Payload: want %q got %q", want.Payload, got.Payload)
	}
}
