package realtime

import "testing"

func TestEnvConfigValidateDefaults(t *testing.T) {
	c := &EnvConfig{Format: "json", LogLevel: "info", MaxDisconnectedRetries: 3}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvConfigValidateRejectsWildcardClientID(t *testing.T) {
	c := &EnvConfig{ClientID: "*", Format: "json", LogLevel: "info", MaxDisconnectedRetries: 1}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected an error for a literal wildcard client id")
	}
}

func TestEnvConfigValidateRejectsUnknownFormat(t *testing.T) {
	c := &EnvConfig{Format: "yaml", LogLevel: "info", MaxDisconnectedRetries: 1}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected an error for an unsupported format")
	}
}

func TestEnvConfigValidateRejectsUnknownLogLevel(t *testing.T) {
	c := &EnvConfig{Format: "json", LogLevel: "verbose", MaxDisconnectedRetries: 1}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected an error for an unrecognized log level")
	}
}

func TestEnvConfigValidateRejectsNonPositiveRetries(t *testing.T) {
	c := &EnvConfig{Format: "json", LogLevel: "info", MaxDisconnectedRetries: 0}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected an error for a non-positive retry budget")
	}
}

func TestEnvConfigToOptionsCarriesFieldsThrough(t *testing.T) {
	c := &EnvConfig{
		APIKey:                 "k",
		ClientID:               "cid",
		Format:                 "msgpack",
		MaxDisconnectedRetries: 5,
		LogLevel:               "debug",
	}
	o := c.ToOptions()
	if o.Key != "k" || o.ClientID != "cid" || o.Format != "msgpack" || o.MaxDisconnectedRetries != 5 {
		t.Fatalf("unexpected Options from ToOptions: %+v", o)
	}
}
