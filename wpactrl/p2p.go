package wpactrl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/columbia-irt/spinet-go/dnssd"
	"github.com/columbia-irt/spinet-go/internal/errors"
)

// P2PFindOptions configures P2PFind's optional duration and search
// strategy.
type P2PFindOptions struct {
	// DurationSeconds limits discovery to this many seconds; zero means
	// run until P2PStopFind or P2PConnect.
	DurationSeconds int
	// SearchType is "", "social", or "progressive".
	SearchType string
}

// P2PFind starts P2P device discovery.
func (c *Client) P2PFind(opts P2PFindOptions) error {
	cmd := "P2P_FIND"
	if opts.DurationSeconds > 0 {
		cmd += " " + strconv.Itoa(opts.DurationSeconds)
	}
	if opts.SearchType != "" {
		cmd += " type=" + opts.SearchType
	}
	return c.RequestOK(cmd)
}

// P2PStopFind stops ongoing P2P device discovery or another in-progress
// operation (connect, listen).
func (c *Client) P2PStopFind() error { return c.RequestOK("P2P_STOP_FIND") }

// P2PFlush clears the P2P peer list.
func (c *Client) P2PFlush() error { return c.RequestOK("P2P_FLUSH") }

// P2PListen starts Listen-only state.
func (c *Client) P2PListen() error { return c.RequestOK("P2P_LISTEN") }

// P2PGroupAdd sets up a P2P group owner manually (autonomous GO).
func (c *Client) P2PGroupAdd() error { return c.RequestOK("P2P_GROUP_ADD") }

// P2PGroupRemove terminates the P2P group running on the named
// interface.
func (c *Client) P2PGroupRemove(ifname string) error {
	return c.RequestOK("P2P_GROUP_REMOVE " + ifname)
}

// P2PReject rejects a pending GO Negotiation from addr and blocks
// further discovery of it.
func (c *Client) P2PReject(addr string) error {
	return c.RequestOK("P2P_REJECT " + addr)
}

// P2PInvite invites addr to join group.
func (c *Client) P2PInvite(addr, group string) error {
	return c.RequestOK(fmt.Sprintf("P2P_INVITE group=%s peer=%s", group, addr))
}

// P2PRemoveClient removes addr from a group the local device is GO of.
func (c *Client) P2PRemoveClient(addr string) error {
	return c.RequestOK("P2P_REMOVE_CLIENT " + addr)
}

// P2PPeer returns one discovered peer's address and STATUS-style field
// dict, either the first in the peer table (peer == "" or "FIRST") or
// the one following addr (peer == "NEXT-"+addr). It returns ("", nil,
// nil) once there is no next peer.
func (c *Client) P2PPeer(peer string) (addr string, fields map[string]string, err error) {
	if peer == "" {
		peer = "FIRST"
	}
	raw, err := c.Request("P2P_PEER " + peer)
	if err != nil {
		return "", nil, err
	}
	if raw == "FAIL" {
		return "", nil, nil
	}
	eol := strings.IndexByte(raw, '\n')
	if eol == -1 {
		return "", nil, &errors.ProtocolError{Operation: "p2p_peer", Details: "missing address line: " + raw}
	}
	addr = strings.TrimSpace(raw[:eol])
	fields, err = parseDict(strings.TrimSpace(raw[eol:]))
	if err != nil {
		return "", nil, err
	}
	return addr, fields, nil
}

// P2PPeers iterates every discovered peer, calling fn with each address
// and field dict. It stops at the first P2PPeer error or once the
// table is exhausted.
func (c *Client) P2PPeers(fn func(addr string, fields map[string]string)) error {
	addr, fields, err := c.P2PPeer("")
	for addr != "" {
		if err != nil {
			return err
		}
		fn(addr, fields)
		addr, fields, err = c.P2PPeer("NEXT-" + addr)
	}
	return err
}

// P2PConnectOptions configures P2PConnect. WPSMethod is required; the
// rest are optional and omitted from the command when zero-valued,
// except GOIntent, which is omitted only when negative (a zero GOIntent
// is sent as go_intent=0).
type P2PConnectOptions struct {
	WPSMethod  string // "pbc", "pin", or a pre-selected PIN
	Persistent string // "" to skip, "persistent" or "persistent=<netid>"
	Join       bool
	GOIntent   int // 0-15; -1 to omit
	FreqMHz    int // 0 to omit
	Auto       bool
	SSIDHex    string
}

// P2PConnect starts P2P group formation with a discovered peer.
func (c *Client) P2PConnect(addr string, opts P2PConnectOptions) error {
	var b strings.Builder
	fmt.Fprintf(&b, "P2P_CONNECT %s %s", addr, opts.WPSMethod)
	if opts.Persistent != "" {
		fmt.Fprintf(&b, " %s", opts.Persistent)
	}
	if opts.Join {
		b.WriteString(" join")
	}
	if opts.GOIntent >= 0 {
		fmt.Fprintf(&b, " go_intent=%d", opts.GOIntent)
	}
	if opts.FreqMHz > 0 {
		fmt.Fprintf(&b, " freq=%d", opts.FreqMHz)
	}
	if opts.Auto {
		b.WriteString(" auto")
	}
	if opts.SSIDHex != "" {
		fmt.Fprintf(&b, " ssid=%s", opts.SSIDHex)
	}
	return c.RequestOK(b.String())
}

// P2PServiceAdvertisePTR registers a PTR-record DNS-SD advertisement
// with wpa_supplicant's ANQP service database, mirroring
// P2P_SERVICE_ADD bonjour <anqpdata-hex> <rdata-hex>.
func (c *Client) P2PServiceAdvertisePTR(instanceName, serviceType string) error {
	anqpHex, rdataHex, err := dnssd.BuildPTRAdvertisement(instanceName, serviceType)
	if err != nil {
		return err
	}
	return c.RequestOK("P2P_SERVICE_ADD " + dnssd.BonjourServiceAddArgs(anqpHex, rdataHex))
}

// P2PServiceAdvertiseTXT registers a TXT-record DNS-SD advertisement,
// mirroring P2P_SERVICE_ADD bonjour <anqpdata-hex> <rdata-hex>.
func (c *Client) P2PServiceAdvertiseTXT(instanceName string, attrs []dnssd.KV) error {
	anqpHex, rdataHex, err := dnssd.BuildTXTAdvertisement(instanceName, attrs)
	if err != nil {
		return err
	}
	return c.RequestOK("P2P_SERVICE_ADD " + dnssd.BonjourServiceAddArgs(anqpHex, rdataHex))
}

// P2PServiceDel removes a previously advertised service, identified by
// the same "bonjour <anqpdata-hex> <rdata-hex>" arguments
// P2PServiceAdvertisePTR/P2PServiceAdvertiseTXT used to register it.
func (c *Client) P2PServiceDel(args string) error {
	return c.RequestOK("P2P_SERVICE_DEL " + args)
}

// P2PServiceFlush clears every local service advertisement.
func (c *Client) P2PServiceFlush() error { return c.RequestOK("P2P_SERVICE_FLUSH") }

// P2PServiceUpdate notifies peers that the local service list changed.
func (c *Client) P2PServiceUpdate() error { return c.RequestOK("P2P_SERVICE_UPDATE") }

// P2PServDiscReq issues a DNS-SD service discovery query (built by
// dnssd.BuildPTRQuery) against addr, or the broadcast address to query
// every peer, and returns the request's tracking id.
func (c *Client) P2PServDiscReq(queryHex, addr string) (string, error) {
	if addr == "" {
		addr = "00:00:00:00:00:00"
	}
	id, err := c.Request(fmt.Sprintf("P2P_SERV_DISC_REQ %s %s", addr, queryHex))
	if err != nil {
		return "", err
	}
	if id == "FAIL" {
		return "", &errors.ProtocolError{Operation: "p2p_serv_disc_req", Err: &errors.CommandFailed{Reply: id}}
	}
	return id, nil
}

// P2PServDiscCancelReq cancels an outstanding service discovery request
// by id.
func (c *Client) P2PServDiscCancelReq(id string) error {
	return c.RequestOK("P2P_SERV_DISC_CANCEL_REQ " + id)
}
