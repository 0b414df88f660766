package realtime

import (
	"fmt"
	"math/rand"
)

// defaultFallbackHosts is the fixed pool of labeled alternate endpoints
// under the public domain, per spec.md §6.
var defaultFallbackHosts = []string{
	"a-fallback.realtime.example-realtime.io",
	"b-fallback.realtime.example-realtime.io",
	"c-fallback.realtime.example-realtime.io",
	"d-fallback.realtime.example-realtime.io",
	"e-fallback.realtime.example-realtime.io",
}

const publicDomain = "example-realtime.io"

// hostCursor tracks which host the next transport open should target,
// implementing the primary/fallback selection rule of spec.md §4.6/§6.
// Grounded in shape on nats.go's MaxReconnects/server-list cycling (the
// teacher's go.mod declares nats.go for exactly this kind of
// attempt-bounded failover against a list of candidate servers).
type hostCursor struct {
	primaryHost   string
	fallbackHosts []string
	customHost    bool // true when Options.Environment/Host was set explicitly

	shuffled []string
	index    int
}

func newHostCursor(environment, customHost string) *hostCursor {
	hc := &hostCursor{}
	switch {
	case customHost != "":
		hc.primaryHost = customHost
		hc.customHost = true
	case environment != "":
		hc.primaryHost = fmt.Sprintf("%s-realtime.%s", environment, publicDomain)
		hc.customHost = true
	default:
		hc.primaryHost = "realtime." + publicDomain
	}
	hc.fallbackHosts = append([]string(nil), defaultFallbackHosts...)
	return hc
}

// beginAttempt computes this attempt's host, per the rule in spec.md
// §4.6: primary unless the previous state was Disconnected/Suspended AND
// at least one prior retry of that state has already happened AND no
// custom host/environment is configured.
func (hc *hostCursor) beginAttempt(previous State, priorRetriesOfState int) string {
	useFallback := !hc.customHost &&
		(previous == StateDisconnected || previous == StateSuspended) &&
		priorRetriesOfState > 0

	if !useFallback {
		hc.shuffled = nil
		hc.index = 0
		return hc.primaryHost
	}

	if hc.shuffled == nil {
		hc.shuffled = shuffledCopy(hc.fallbackHosts)
		hc.index = 0
	}
	if hc.index >= len(hc.shuffled) {
		hc.index = 0
	}
	host := hc.shuffled[hc.index]
	hc.index++
	return host
}

func shuffledCopy(hosts []string) []string {
	out := append([]string(nil), hosts...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
