// Package ping discovers link-local IPv6 neighbors on a P2P group
// interface by sending periodic ICMPv6 Echo Requests to the
// all-nodes multicast group and tracking which addresses answer,
// independently of wpactrl — a Pinger only needs an interface name.
package ping

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/columbia-irt/spinet-go/internal/errors"
	"github.com/columbia-irt/spinet-go/internal/icmp6"
)

const (
	defaultPingInterval  = time.Second
	defaultLifetime      = 5 * time.Second
	defaultPurgeInterval = time.Second
	minScheduleWait      = 10 * time.Millisecond
)

// NotificationKind distinguishes a peer becoming reachable from one
// timing out.
type NotificationKind int

const (
	// Joined is emitted the first time an address is seen.
	Joined NotificationKind = iota
	// Left is emitted when an address's last-seen time exceeds Lifetime.
	Left
)

// Notification reports a liveness-map transition for one peer address.
type Notification struct {
	Kind NotificationKind
	Addr net.IP
}

// echoSocket is the subset of icmp6.Socket a Pinger depends on; tests
// substitute a fake implementation to avoid requiring CAP_NET_RAW.
type echoSocket interface {
	SendEchoRequest(id, seq int) error
	Receive(ctx context.Context) (net.IP, error)
	Close() error
}

// Pinger runs one ICMPv6 liveness loop for a single interface.
type Pinger struct {
	ifname        string
	pingInterval  time.Duration
	lifetime      time.Duration
	purgeInterval time.Duration
	logger        *slog.Logger
	ownAddrs      map[string]bool
	ownAddrsSet   bool

	mu       sync.Mutex
	lastSeen map[string]time.Time

	subMu     sync.Mutex
	subs      []pingSubscription
	nextSubID uint64

	sock    echoSocket
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New builds a Pinger for ifname. It does not open any socket; call
// Start to begin pinging.
func New(ifname string, opts ...Option) (*Pinger, error) {
	p := &Pinger{
		ifname:        ifname,
		pingInterval:  defaultPingInterval,
		lifetime:      defaultLifetime,
		purgeInterval: defaultPurgeInterval,
		logger:        slog.Default(),
		lastSeen:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Start opens the raw ICMPv6 socket (unless a fake was injected for
// testing) and launches the scheduling loop.
func (p *Pinger) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return &errors.LifecycleError{Operation: "start", Details: "pinger already started"}
	}

	if !p.ownAddrsSet {
		addrs, err := interfaceIPv6Addrs(p.ifname)
		if err != nil {
			return err
		}
		p.ownAddrs = addrs
	}

	if p.sock == nil {
		sock, err := icmp6.NewSocket(p.ifname)
		if err != nil {
			return err
		}
		p.sock = sock
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.started = true

	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

// Stop cancels the scheduling loop, waits for it to exit, and closes
// the socket.
func (p *Pinger) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return &errors.LifecycleError{Operation: "stop", Details: "pinger not started"}
	}
	cancel := p.cancel
	sock := p.sock
	p.started = false
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	return sock.Close()
}

func (p *Pinger) run(ctx context.Context) {
	defer p.wg.Done()

	var lastPing, lastPurge time.Time
	seq := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		wait := p.pingInterval - now.Sub(lastPing)
		if purgeWait := p.purgeInterval - now.Sub(lastPurge); purgeWait < wait {
			wait = purgeWait
		}
		if wait < minScheduleWait {
			wait = minScheduleWait
		}

		rctx, cancel := context.WithTimeout(ctx, wait)
		addr, err := p.sock.Receive(rctx)
		cancel()
		if err == nil {
			p.processResponse(addr)
		} else if ctx.Err() != nil {
			return
		} else if _, timedOut := err.(*errors.TimeoutError); !timedOut {
			p.logger.Warn("receive error", "ifname", p.ifname, "err", err)
		}

		now = time.Now()
		if now.Sub(lastPing) >= p.pingInterval {
			if err := p.sock.SendEchoRequest(0, seq); err != nil {
				p.logger.Debug("echo request send failed, continuing", "ifname", p.ifname, "err", err)
			}
			seq++
			lastPing = now
		}
		if now.Sub(lastPurge) >= p.purgeInterval {
			p.purge()
			lastPurge = now
		}
	}
}

func (p *Pinger) processResponse(addr net.IP) {
	if addr == nil {
		return
	}
	key := addr.String()
	if p.ownAddrs[key] {
		return
	}

	p.mu.Lock()
	_, existed := p.lastSeen[key]
	p.lastSeen[key] = time.Now()
	p.mu.Unlock()

	if !existed {
		p.notify(Notification{Kind: Joined, Addr: addr})
	}
}

func (p *Pinger) purge() {
	now := time.Now()
	var expired []net.IP

	p.mu.Lock()
	for key, seen := range p.lastSeen {
		if now.Sub(seen) > p.lifetime {
			delete(p.lastSeen, key)
			expired = append(expired, net.ParseIP(key))
		}
	}
	p.mu.Unlock()

	for _, addr := range expired {
		p.notify(Notification{Kind: Left, Addr: addr})
	}
}

// pingSubscription pairs a subscriber's callback with a stable id so
// Subscribe's returned unsubscribe can find it by identity rather than
// by position — the slice shifts whenever an earlier subscription is
// removed, so a positional index would go stale.
type pingSubscription struct {
	id uint64
	fn func(Notification)
}

func (p *Pinger) notify(n Notification) {
	p.subMu.Lock()
	subs := append([]pingSubscription(nil), p.subs...)
	p.subMu.Unlock()
	for _, s := range subs {
		s.fn(n)
	}
}

// Subscribe registers fn to run on every Joined/Left transition. It
// returns a function that removes the subscription; calling it more
// than once is a no-op.
func (p *Pinger) Subscribe(fn func(Notification)) (unsubscribe func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	p.nextSubID++
	id := p.nextSubID
	p.subs = append(p.subs, pingSubscription{id: id, fn: fn})

	removed := false
	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		if removed {
			return
		}
		removed = true
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

// Peers returns a snapshot of every address currently considered alive.
func (p *Pinger) Peers() []net.IP {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]net.IP, 0, len(p.lastSeen))
	for key := range p.lastSeen {
		out = append(out, net.ParseIP(key))
	}
	return out
}

func interfaceIPv6Addrs(ifname string) (map[string]bool, error) {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, &errors.TransportError{Operation: "resolve interface", Details: ifname, Err: err}
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, &errors.TransportError{Operation: "list interface addresses", Details: ifname, Err: err}
	}
	out := make(map[string]bool)
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.To4() != nil {
			continue
		}
		out[ipNet.IP.String()] = true
	}
	return out, nil
}
