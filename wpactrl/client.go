// Package wpactrl is a client for wpa_supplicant's local control
// interface: a pair of unix datagram sockets per interface, one for
// synchronous request/reply commands and one attached for asynchronous
// event notifications (P2P discovery, group lifecycle, WPS negotiation).
package wpactrl

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/columbia-irt/spinet-go/internal/ctrlsock"
	"github.com/columbia-irt/spinet-go/internal/errors"
)

const (
	defaultSockDir  = "/run/wpa_supplicant"
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 5 * time.Second
	attachTimeout   = 5 * time.Second
	detachTimeout   = 3 * time.Second
	reattachBackoff = 2 * time.Second
)

// Client is a control connection to wpa_supplicant for a single
// interface. Start opens the request socket and begins an event-reader
// goroutine; Stop tears both down. A Client is safe for concurrent use
// by multiple goroutines once started.
type Client struct {
	sockDir    string
	timeout    time.Duration
	cacheTTL   time.Duration
	logger     *slog.Logger
	p2pEnabled bool

	mu       sync.Mutex
	started  bool
	ifname   string
	remote   string
	p2pIface string
	reqSock  *ctrlsock.RequestSocket
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	subMu     sync.Mutex
	subs      map[string][]subscription
	nextSubID uint64

	uuidCache    ttlCache
	addressCache ttlCache
	p2pAddrCache ttlCache
}

// New builds a Client with the given options applied. It does not open
// any socket; call Start to begin talking to an interface.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		sockDir:  defaultSockDir,
		timeout:  defaultTimeout,
		cacheTTL: defaultCacheTTL,
		logger:   slog.Default(),
		subs:     make(map[string][]subscription),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) ifnameToRemote(ifname string) string {
	return filepath.Join(c.sockDir, ifname)
}

// Start binds the request socket to ifname and launches its event
// reader. If WithP2P was set and INTERFACES lists a p2p-dev-* device
// interface (normally p2p-dev-<ifname>), a second event reader is
// started against the first such entry,
// mirroring P2PWPASupplicant.start's extra device-level event thread.
func (c *Client) Start(ifname string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return &errors.LifecycleError{Operation: "start", Details: "client already started"}
	}

	remote := c.ifnameToRemote(ifname)
	reqSock, err := ctrlsock.NewRequestSocket(c.sockDir, remote)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.ifname = ifname
	c.remote = remote
	c.reqSock = reqSock
	c.cancel = cancel
	c.started = true

	c.wg.Add(1)
	go c.runEventLoop(ctx, ifname, remote)

	if c.p2pEnabled {
		if ifaces, err := c.interfacesLocked(); err == nil {
			for _, i := range ifaces {
				if strings.HasPrefix(i, "p2p-dev-") {
					p2pRemote := c.ifnameToRemote(i)
					c.p2pIface = i
					c.wg.Add(1)
					go c.runEventLoop(ctx, i, p2pRemote)
					break
				}
			}
		} else {
			c.logger.Warn("could not enumerate interfaces for p2p-dev event thread", "err", err)
		}
	}
	return nil
}

// Stop cancels the event reader(s), waits for them to exit, and closes
// the request socket.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return &errors.LifecycleError{Operation: "stop", Details: "client not started"}
	}
	cancel := c.cancel
	reqSock := c.reqSock
	c.started = false
	c.reqSock = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	return reqSock.Close()
}

func (c *Client) runEventLoop(ctx context.Context, ifname, remote string) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.eventLoopOnce(ctx, ifname, remote); err != nil {
			c.logger.Error("event loop error, will retry", "ifname", ifname, "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reattachBackoff):
		}
	}
}

func (c *Client) eventLoopOnce(ctx context.Context, ifname, remote string) error {
	sock, err := ctrlsock.NewEventSocket(c.sockDir, remote)
	if err != nil {
		return err
	}
	defer sock.Close()

	if err := sock.Attach(attachTimeout); err != nil {
		return err
	}
	defer func() {
		if err := sock.Detach(detachTimeout); err != nil {
			c.logger.Warn("detach failed, socket will be discarded", "ifname", ifname, "err", err)
		}
	}()

	for {
		data, err := sock.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		ev, err := parseEvent(ifname, string(data))
		if err != nil {
			c.logger.Warn("malformed event, dropped", "ifname", ifname, "err", err)
			continue
		}
		c.dispatch(ev)
	}
}

// Request sends cmd on the request socket and returns the trimmed
// reply, using the client's configured default timeout.
func (c *Client) Request(cmd string) (string, error) {
	return c.RequestTimeout(cmd, c.timeout)
}

// RequestTimeout is Request with an explicit timeout.
func (c *Client) RequestTimeout(cmd string, timeout time.Duration) (string, error) {
	c.mu.Lock()
	reqSock := c.reqSock
	c.mu.Unlock()
	if reqSock == nil {
		return "", &errors.LifecycleError{Operation: "request", Details: "client not started"}
	}

	reply, err := reqSock.Request([]byte(cmd), timeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(reply)), nil
}

// RequestCheck issues cmd and returns a ProtocolError unless the reply
// equals want exactly.
func (c *Client) RequestCheck(cmd, want string) error {
	got, err := c.Request(cmd)
	if err != nil {
		return err
	}
	if got != want {
		return &errors.ProtocolError{Operation: cmd, Details: "unexpected reply", Err: &errors.CommandFailed{Reply: got}}
	}
	return nil
}

// RequestOK is RequestCheck(cmd, "OK"), the common case for commands
// whose only success reply is the literal "OK".
func (c *Client) RequestOK(cmd string) error {
	return c.RequestCheck(cmd, "OK")
}

// WithInterface temporarily rebinds the request socket's remote path to
// ifname's control socket, runs fn, and restores the previous binding —
// even if fn returns an error. This fixes a bug in the client this
// package is modeled on, whose equivalent contextmanager skipped the
// restore entirely when the wrapped block raised.
func (c *Client) WithInterface(ifname string, fn func() error) error {
	c.mu.Lock()
	reqSock := c.reqSock
	c.mu.Unlock()
	if reqSock == nil {
		return &errors.LifecycleError{Operation: "with interface", Details: "client not started"}
	}

	previous := reqSock.Rebind(c.ifnameToRemote(ifname))
	defer reqSock.Rebind(previous)
	return fn()
}

// Ping checks whether wpa_supplicant is responding on the control
// interface.
func (c *Client) Ping() error { return c.RequestCheck("PING", "PONG") }

// SaveConfig persists the current configuration to disk.
func (c *Client) SaveConfig() error { return c.RequestOK("SAVE_CONFIG") }

// Reassociate forces reassociation.
func (c *Client) Reassociate() error { return c.RequestOK("REASSOCIATE") }

// Reconnect connects if currently disconnected.
func (c *Client) Reconnect() error { return c.RequestOK("RECONNECT") }

// Disconnect disconnects and waits for Reassociate/Reconnect before
// reconnecting.
func (c *Client) Disconnect() error { return c.RequestOK("DISCONNECT") }

// Reconfigure forces wpa_supplicant to re-read its configuration file.
func (c *Client) Reconfigure() error { return c.RequestOK("RECONFIGURE") }

// Scan requests a new BSS scan.
func (c *Client) Scan() error { return c.RequestOK("SCAN") }

// Status requests current WPA/EAPOL/EAP status information.
func (c *Client) Status() (map[string]string, error) {
	raw, err := c.Request("STATUS")
	if err != nil {
		return nil, err
	}
	return parseDict(raw)
}

// MIB requests the dot1x/dot11 MIB variable dump.
func (c *Client) MIB() (map[string]string, error) {
	raw, err := c.Request("MIB")
	if err != nil {
		return nil, err
	}
	return parseDict(raw)
}

// Set sets a global wpa_supplicant runtime parameter (e.g. "bssid_filter").
func (c *Client) Set(key, value string) error {
	return c.RequestOK(fmt.Sprintf("SET %s %s", key, value))
}

// Dump returns every global runtime variable wpa_supplicant tracks.
func (c *Client) Dump() (map[string]string, error) {
	raw, err := c.Request("DUMP")
	if err != nil {
		return nil, err
	}
	return parseDict(raw)
}

// Station returns one associated station's address and key/value field
// table: the first station (addr == "") or the one following addr. It
// returns ("", nil, nil) once there is no next station.
func (c *Client) Station(addr string) (station string, fields map[string]string, err error) {
	cmd := "STA-FIRST"
	if addr != "" {
		cmd = "STA-NEXT " + addr
	}
	raw, err := c.Request(cmd)
	if err != nil {
		return "", nil, err
	}
	if raw == "" || raw == "FAIL" {
		return "", nil, nil
	}
	eol := strings.IndexByte(raw, '\n')
	if eol == -1 {
		return "", nil, &errors.ProtocolError{Operation: "sta", Details: "missing address line: " + raw}
	}
	station = strings.TrimSpace(raw[:eol])
	fields, err = parseDict(strings.TrimSpace(raw[eol:]))
	if err != nil {
		return "", nil, err
	}
	return station, fields, nil
}

// AllStations iterates every associated station, calling fn with each
// address and field dict, stopping at the first Station error or once
// the table is exhausted.
func (c *Client) AllStations(fn func(addr string, fields map[string]string)) error {
	addr, fields, err := c.Station("")
	for addr != "" {
		if err != nil {
			return err
		}
		fn(addr, fields)
		addr, fields, err = c.Station(addr)
	}
	return err
}

// UUID returns the interface's UUID from STATUS, cached for
// WithCacheTTL (default 5s).
func (c *Client) UUID() (string, error) {
	return c.uuidCache.get(c.cacheTTL, func() (string, error) {
		st, err := c.Status()
		if err != nil {
			return "", err
		}
		return st["uuid"], nil
	})
}

// Address returns the interface's MAC address from STATUS, cached for
// WithCacheTTL (default 5s).
func (c *Client) Address() (string, error) {
	return c.addressCache.get(c.cacheTTL, func() (string, error) {
		st, err := c.Status()
		if err != nil {
			return "", err
		}
		return st["address"], nil
	})
}

// P2PDeviceAddress returns the P2P device address from STATUS, cached
// for WithCacheTTL (default 5s).
func (c *Client) P2PDeviceAddress() (string, error) {
	return c.p2pAddrCache.get(c.cacheTTL, func() (string, error) {
		st, err := c.Status()
		if err != nil {
			return "", err
		}
		return st["p2p_device_address"], nil
	})
}

// Interfaces lists the interfaces wpa_supplicant currently manages, most
// recently added first.
func (c *Client) Interfaces() ([]string, error) {
	raw, err := c.Request("INTERFACES")
	if err != nil {
		return nil, err
	}
	return reverseLines(raw), nil
}

// interfacesLocked is Interfaces for use from within Start, which holds
// c.mu: it sends on c.reqSock directly, since Request would try to
// acquire c.mu again and deadlock.
func (c *Client) interfacesLocked() ([]string, error) {
	reply, err := c.reqSock.Request([]byte("INTERFACES"), c.timeout)
	if err != nil {
		return nil, err
	}
	return reverseLines(strings.TrimSpace(string(reply))), nil
}

func reverseLines(s string) []string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines
}
