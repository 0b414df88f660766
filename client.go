package realtime

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// AuthParams are the URL query parameters contributed by the auth engine
// on each transport open (spec.md §1: token/auth engine is an external
// collaborator). Exactly one of Key/AccessToken should be set.
type AuthParams struct {
	Key         string
	AccessToken string
}

// AuthProvider is the injected capability that supplies fresh auth
// parameters, modeled per spec.md §9 as "an async capability returning
// fresh parameters; never invoke it on the event loop" — Fetch is always
// called from a Scheduler.Defer goroutine, never the loop goroutine.
type AuthProvider interface {
	Fetch(ctx context.Context) (AuthParams, error)
}

// staticAuthProvider is the trivial AuthProvider for a fixed API key,
// used when Options.Key is set directly rather than via a callback.
type staticAuthProvider struct{ key string }

func (p staticAuthProvider) Fetch(context.Context) (AuthParams, error) {
	return AuthParams{Key: p.key}, nil
}

// Options configures a Client. Fields mirror the enumerated
// configuration of spec.md §6.
type Options struct {
	// Auth source: exactly one of Key, Auth should be set.
	Key  string
	Auth AuthProvider

	ClientID    string
	Environment string
	Host        string // custom host; disables fallback when set
	DisableTLS  bool   // TLS is on by default; set true to force plaintext ws://

	EchoMessages bool
	Recover      string
	Format       string // "json" (default) or "msgpack"

	ReconnectTimeoutDisconnected time.Duration
	ReconnectTimeoutSuspended    time.Duration
	MaxDisconnectedRetries       int
	CloseTimeout                 time.Duration

	// Ambient/optional integrations (SPEC_FULL.md §2).
	TelemetryNATSURL    string
	SampleResourceUsage bool
	LogLevel            string
	Logger              *zerolog.Logger
	Registerer          prometheus.Registerer

	// Test seams; nil in production use.
	Scheduler        Scheduler
	TransportFactory TransportFactory
	WSPath           string
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = "json"
	}
	if o.ReconnectTimeoutDisconnected == 0 {
		o.ReconnectTimeoutDisconnected = 15 * time.Second
	}
	if o.ReconnectTimeoutSuspended == 0 {
		o.ReconnectTimeoutSuspended = 30 * time.Second
	}
	if o.MaxDisconnectedRetries == 0 {
		o.MaxDisconnectedRetries = 3
	}
	if o.CloseTimeout == 0 {
		o.CloseTimeout = 10 * time.Second
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if o.WSPath == "" {
		o.WSPath = "/"
	}
	return o
}

func (o Options) validate() error {
	if o.ClientID == "*" {
		return newError(ErrKindInvalidArgument, "client_id must not be the literal \"*\"")
	}
	if o.Key == "" && o.Auth == nil {
		return newError(ErrKindInvalidArgument, "one of Key or Auth must be set")
	}
	if o.Format != "json" && o.Format != "msgpack" {
		return newError(ErrKindInvalidArgument, "format must be json or msgpack, got %q", o.Format)
	}
	return nil
}

func (o Options) authProvider() AuthProvider {
	if o.Auth != nil {
		return o.Auth
	}
	return staticAuthProvider{key: o.Key}
}
