package realtime

import "testing"

func TestParseRecoverOptionEmptyIsAbsent(t *testing.T) {
	info, err := parseRecoverOption("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.available() {
		t.Fatalf("empty recover option should not be available")
	}
}

func TestParseRecoverOptionValid(t *testing.T) {
	info, err := parseRecoverOption("abcXYZ_-9:42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.available() {
		t.Fatalf("expected a valid recover option to be available")
	}
	if info.RecoverKey != "abcXYZ_-9" || info.Serial != 42 {
		t.Fatalf("unexpected parse result: %+v", info)
	}
}

func TestParseRecoverOptionNegativeSerial(t *testing.T) {
	info, err := parseRecoverOption("key:-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Serial != -1 {
		t.Fatalf("expected serial -1, got %d", info.Serial)
	}
}

func TestParseRecoverOptionMalformedIsError(t *testing.T) {
	cases := []string{"no-colon", ":42", "key:", "key:abc!"}
	for _, c := range cases {
		if _, err := parseRecoverOption(c); err == nil {
			t.Errorf("expected %q to be rejected as malformed", c)
		}
	}
}

func TestRecoverInfoConsumeIsOneShot(t *testing.T) {
	info, err := parseRecoverOption("key:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.available() {
		t.Fatalf("expected available before consume")
	}
	info.consume()
	if info.available() {
		t.Fatalf("expected unavailable after consume")
	}
	// A second consume must stay a no-op, not panic or error.
	info.consume()
	if info.available() {
		t.Fatalf("expected still unavailable after a second consume")
	}
}

func TestResumeInfoSetClearAndRecoveryKey(t *testing.T) {
	var r ResumeInfo
	if r.present() {
		t.Fatalf("zero-value ResumeInfo should not be present")
	}
	if r.recoveryKey() != "" {
		t.Fatalf("expected empty recovery key when absent")
	}

	r.set("conn-key", 7)
	if !r.present() {
		t.Fatalf("expected present after set")
	}
	if got := r.recoveryKey(); got != "conn-key:7" {
		t.Fatalf("unexpected recovery key %q", got)
	}

	r.clear()
	if r.present() {
		t.Fatalf("expected not present after clear")
	}
	if r.recoveryKey() != "" {
		t.Fatalf("expected empty recovery key after clear")
	}
}
