package realtime

import "testing"

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{Key: "k"}.withDefaults()
	if o.Format != "json" {
		t.Errorf("expected default format json, got %q", o.Format)
	}
	if o.ReconnectTimeoutDisconnected == 0 || o.ReconnectTimeoutSuspended == 0 {
		t.Errorf("expected nonzero reconnect timeouts by default")
	}
	if o.MaxDisconnectedRetries != 3 {
		t.Errorf("expected default MaxDisconnectedRetries 3, got %d", o.MaxDisconnectedRetries)
	}
	if o.CloseTimeout == 0 {
		t.Errorf("expected a nonzero default CloseTimeout")
	}
	if o.WSPath != "/" {
		t.Errorf("expected default WSPath /, got %q", o.WSPath)
	}
}

func TestOptionsValidateRequiresAuth(t *testing.T) {
	o := Options{}.withDefaults()
	if err := o.validate(); err == nil {
		t.Fatalf("expected an error when neither Key nor Auth is set")
	}
}

func TestOptionsValidateRejectsWildcardClientID(t *testing.T) {
	o := Options{Key: "k", ClientID: "*"}.withDefaults()
	if err := o.validate(); err == nil {
		t.Fatalf("expected an error for a literal wildcard ClientID")
	}
}

func TestOptionsValidateRejectsUnknownFormat(t *testing.T) {
	o := Options{Key: "k", Format: "xml"}.withDefaults()
	if err := o.validate(); err == nil {
		t.Fatalf("expected an error for an unsupported format")
	}
}

func TestOptionsAuthProviderPrefersExplicitAuth(t *testing.T) {
	custom := fakeAuthProvider{key: "from-callback"}
	o := Options{Key: "ignored", Auth: custom}
	if o.authProvider() != custom {
		t.Fatalf("expected the explicit Auth provider to be preferred over Key")
	}
}

func TestOptionsAuthProviderFallsBackToStaticKey(t *testing.T) {
	o := Options{Key: "static-key"}
	p := o.authProvider()
	params, err := p.Fetch(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Key != "static-key" {
		t.Fatalf("expected the static key carried through, got %q", params.Key)
	}
}
