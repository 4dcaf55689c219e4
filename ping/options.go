package ping

import (
	"log/slog"
	"net"
	"time"
)

// Option configures a Pinger, following the same functional-options
// shape used by wpactrl.Option.
type Option func(*Pinger) error

// WithPingInterval overrides how often an Echo Request is sent.
// Defaults to 1s.
func WithPingInterval(d time.Duration) Option {
	return func(p *Pinger) error {
		p.pingInterval = d
		return nil
	}
}

// WithLifetime overrides how long a peer may go unheard before it is
// evicted. Defaults to 5s.
func WithLifetime(d time.Duration) Option {
	return func(p *Pinger) error {
		p.lifetime = d
		return nil
	}
}

// WithPurgeInterval overrides how often the liveness map is swept for
// expired entries. Defaults to 1s.
func WithPurgeInterval(d time.Duration) Option {
	return func(p *Pinger) error {
		p.purgeInterval = d
		return nil
	}
}

// WithLogger sets the logger used for send/receive diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pinger) error {
		p.logger = logger
		return nil
	}
}

// WithOwnAddresses overrides the set of addresses excluded from the
// liveness map (normally auto-detected from the interface at Start).
// Useful in tests, where the interface's real addresses aren't the ones
// under test.
func WithOwnAddresses(addrs []net.IP) Option {
	return func(p *Pinger) error {
		p.ownAddrs = make(map[string]bool, len(addrs))
		for _, a := range addrs {
			p.ownAddrs[a.String()] = true
		}
		p.ownAddrsSet = true
		return nil
	}
}
