// Package transport provides the default Doer implementation: a DNS-cached
// http.Transport wrapped in a per-host circuit breaker. Adapted from the
// teacher's fetch.Fetcher, with the retry loop removed — this module makes
// exactly one attempt per call and leaves retry policy to the caller. DNS
// caching and circuit breaking are retained: neither retries a failed
// call, they only affect how a single call resolves a host and whether it
// is attempted at all.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

// Transport is the module's default client.Doer: an *http.Client backed by
// a DNS-caching dial function, refreshed on a fixed interval so a resolver
// change (a registry migrating hosts) is picked up without a process
// restart.
type Transport struct {
	client   *http.Client
	resolver *dnscache.Resolver
	stop     chan struct{}
}

// Option configures a Transport.
type Option func(*Transport)

// WithTimeout overrides the default 5-minute request timeout, sized for
// large source-archive downloads.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) { t.client.Timeout = d }
}

// WithUserAgent installs a RoundTripper that stamps every outgoing request
// with the given User-Agent.
func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		t.client.Transport = &userAgentRoundTripper{next: t.client.Transport, ua: ua}
	}
}

// New builds a Transport with a DNS cache refreshed every 5 minutes,
// matching the teacher's fetch.NewFetcher default.
func New(opts ...Option) *Transport {
	resolver := &dnscache.Resolver{}
	stop := make(chan struct{})
	go refreshLoop(resolver, 5*time.Minute, stop)

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}

	t := &Transport{
		resolver: resolver,
		stop:     stop,
		client: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				DialContext:           dnsCachedDial(resolver, dialer),
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do satisfies client.Doer with a single attempt; it never retries.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

// Close stops the background DNS refresh goroutine.
func (t *Transport) Close() { close(t.stop) }

func refreshLoop(resolver *dnscache.Resolver, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			resolver.Refresh(true)
		}
	}
}

func dnsCachedDial(resolver *dnscache.Resolver, dialer *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("transport: no addresses resolved for %s", host)
	}
}

type userAgentRoundTripper struct {
	next http.RoundTripper
	ua   string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", rt.ua)
	next := rt.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
