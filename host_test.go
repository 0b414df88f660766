package realtime

import "testing"

func TestHostCursorDefaultPrimary(t *testing.T) {
	hc := newHostCursor("", "")
	if hc.primaryHost != "realtime."+publicDomain {
		t.Fatalf("unexpected default primary host %q", hc.primaryHost)
	}
	if hc.customHost {
		t.Fatalf("default construction should not be considered a custom host")
	}
}

func TestHostCursorCustomHostNeverFallsBack(t *testing.T) {
	hc := newHostCursor("", "my.custom.host")
	if !hc.customHost {
		t.Fatalf("explicit Host should mark customHost")
	}

	// Even many prior retries of Disconnected must never trigger fallback
	// when a custom host is configured (spec.md §4.6).
	for i := 0; i < 10; i++ {
		host := hc.beginAttempt(StateDisconnected, i)
		if host != "my.custom.host" {
			t.Fatalf("expected custom host to be used unconditionally, got %q at retry %d", host, i)
		}
	}
}

func TestHostCursorNonProductionEnvironmentIsAlsoCustom(t *testing.T) {
	hc := newHostCursor("sandbox", "")
	if !hc.customHost {
		t.Fatalf("a non-production environment should disable fallback like a custom host")
	}
	if hc.primaryHost != "sandbox-realtime."+publicDomain {
		t.Fatalf("unexpected environment-scoped host %q", hc.primaryHost)
	}
}

func TestHostCursorProductionEnvironmentIsAlsoCustom(t *testing.T) {
	// "production" gets no special-cased default host: it names a
	// deployment like any other environment value (spec.md §6's host
	// layout rule draws no distinction), so it disables fallback the same
	// as any other configured environment.
	hc := newHostCursor("production", "")
	if !hc.customHost {
		t.Fatalf("the production environment should disable fallback like any other configured environment")
	}
	if hc.primaryHost != "production-realtime."+publicDomain {
		t.Fatalf("unexpected environment-scoped host %q", hc.primaryHost)
	}
	for i := 0; i < 5; i++ {
		host := hc.beginAttempt(StateDisconnected, i)
		if host != hc.primaryHost {
			t.Fatalf("expected the production host to be used unconditionally, got %q at retry %d", host, i)
		}
	}
}

// TestHostCursorFallbackActivationSequence exercises spec.md §4.6
// scenario 4's exact rule: the very first attempt (from Initialized)
// always uses the primary host, as does the first retry (zero prior
// retries of Disconnected); only once a retry of Disconnected has
// itself already failed once does the cursor switch to a fallback host.
func TestHostCursorFallbackActivationSequence(t *testing.T) {
	hc := newHostCursor("", "")

	first := hc.beginAttempt(StateInitialized, 0)
	if first != hc.primaryHost {
		t.Fatalf("first attempt must use the primary host, got %q", first)
	}

	second := hc.beginAttempt(StateDisconnected, 0)
	if second != hc.primaryHost {
		t.Fatalf("first retry (zero prior retries) must still use the primary host, got %q", second)
	}

	third := hc.beginAttempt(StateDisconnected, 1)
	isFallback := false
	for _, h := range defaultFallbackHosts {
		if h == third {
			isFallback = true
			break
		}
	}
	if !isFallback {
		t.Fatalf("third attempt (one prior retry already failed) must use a fallback host, got %q", third)
	}
}

func TestHostCursorFallbackCyclesWithoutRepeatingBeforeExhaustion(t *testing.T) {
	hc := newHostCursor("", "")
	hc.beginAttempt(StateInitialized, 0)

	seen := make(map[string]bool)
	for i := 1; i <= len(defaultFallbackHosts); i++ {
		host := hc.beginAttempt(StateDisconnected, i)
		if seen[host] {
			t.Fatalf("fallback host %q repeated before the pool was exhausted", host)
		}
		seen[host] = true
	}
	if len(seen) != len(defaultFallbackHosts) {
		t.Fatalf("expected every fallback host to be used exactly once, got %d/%d", len(seen), len(defaultFallbackHosts))
	}
}

func TestHostCursorSuspendedRetryAlsoFallsBack(t *testing.T) {
	hc := newHostCursor("", "")
	host := hc.beginAttempt(StateSuspended, 1)
	isFallback := false
	for _, h := range defaultFallbackHosts {
		if h == host {
			isFallback = true
		}
	}
	if !isFallback {
		t.Fatalf("a retry from Suspended with a prior retry should also use a fallback host, got %q", host)
	}
}
