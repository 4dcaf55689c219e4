package wpactrl

import (
	"log/slog"
	"time"
)

// Option configures a Client. Options are applied by New before any
// goroutine is started, following the same pattern as responder.Option
// in the mDNS library this package's transport layer is modeled on.
type Option func(*Client) error

// WithSocketDir overrides the directory wpa_supplicant's control
// sockets live in. Defaults to /run/wpa_supplicant.
func WithSocketDir(dir string) Option {
	return func(c *Client) error {
		c.sockDir = dir
		return nil
	}
}

// WithTimeout overrides the default request timeout (10s, matching the
// Python client's request() default).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithLogger sets the logger used for event-loop diagnostics. Defaults
// to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithP2P enables the second event thread attached to the first p2p-dev-*
// device interface INTERFACES lists (normally p2p-dev-<ifname>), mirroring P2PWPASupplicant.start's extra event
// thread for P2P device-level events (GO Negotiation, service discovery)
// that arrive on the device interface rather than the group interface.
func WithP2P(enabled bool) Option {
	return func(c *Client) error {
		c.p2pEnabled = enabled
		return nil
	}
}

// WithCacheTTL overrides the TTL for the cached Status-derived
// properties (UUID, Address, P2PDeviceAddress). Defaults to 5s, matching
// the Python client's cached_property_with_ttl(ttl=5).
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cacheTTL = ttl
		return nil
	}
}
