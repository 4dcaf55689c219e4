// Package icmp6 provides the raw ICMPv6 socket primitive behind the
// neighbor pinger: sending an Echo Request to the all-nodes multicast
// address on a given interface, and reading back whatever ICMPv6
// traffic other nodes address to that same group. Liveness here does
// not distinguish Echo Request from Echo Reply — hearing any ICMPv6
// message from a peer on the link is itself the liveness signal, the
// same way the reference client's raw socket read never inspected the
// message type.
package icmp6

import (
	"context"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// AllNodesMulticast is the link-local all-nodes multicast address every
// pinger sends its Echo Request to.
const AllNodesMulticast = "ff02::1"

// echoPayload is sent as the Echo Request body. Its content is
// irrelevant — only its arrival is — so it is fixed rather than
// randomized per packet.
var echoPayload = []byte{0x80, 0, 0, 0, 0, 0, 0, 0}

// Socket is a raw ICMPv6 socket scoped to one interface: it sends on
// that interface's multicast domain, and Receive drops traffic that
// arrived on any other interface (the socket itself listens on "::").
type Socket struct {
	pc  *icmp.PacketConn
	p6  *ipv6.PacketConn
	ifi *net.Interface
	dst *net.UDPAddr
}

// NewSocket opens a raw ICMPv6 socket and scopes it to ifname: outgoing
// Echo Requests go to ff02::1 on that interface, and incoming control
// messages report which interface a packet arrived on so Receive can
// drop traffic heard on any other interface.
func NewSocket(ifname string) (*Socket, error) {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, &errors.TransportError{Operation: "resolve interface", Details: ifname, Err: err}
	}

	pc, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
	if err != nil {
		return nil, &errors.TransportError{Operation: "open icmpv6 socket", Err: err}
	}

	p6 := pc.IPv6PacketConn()
	if err := p6.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		pc.Close()
		return nil, &errors.TransportError{Operation: "enable control messages", Err: err}
	}
	if err := p6.SetMulticastInterface(ifi); err != nil {
		pc.Close()
		return nil, &errors.TransportError{Operation: "set multicast interface", Details: ifname, Err: err}
	}

	dst := &net.UDPAddr{IP: net.ParseIP(AllNodesMulticast), Zone: ifname}
	return &Socket{pc: pc, p6: p6, ifi: ifi, dst: dst}, nil
}

// SendEchoRequest sends one Echo Request to the all-nodes group. A send
// failure is returned to the caller, but the pinger's convention (see
// package ping) is to log and continue rather than treat it as fatal —
// a transient ENETUNREACH on a flapping group interface shouldn't stop
// the scheduling loop.
func (s *Socket) SendEchoRequest(id, seq int) error {
	msg := icmp.Message{
		Type: ipv6.ICMPTypeEchoRequest,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: echoPayload},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return &errors.TransportError{Operation: "marshal echo request", Err: err}
	}
	if _, err := s.pc.WriteTo(wb, s.dst); err != nil {
		return &errors.TransportError{Operation: "send echo request", Err: err}
	}
	return nil
}

// Receive waits for one ICMPv6 datagram arriving on s's interface,
// honoring ctx's deadline, and reports the sender's address. The
// message's ICMPv6 type is deliberately not inspected: see the package
// doc comment. A raw ICMPv6 socket is bound to "::" and therefore
// receives traffic from every interface, so every read is checked
// against the control message's IfIndex and silently dropped if it
// arrived elsewhere — the same filter Splat-NDPeekr's listener applies
// (`if cm == nil || cm.IfIndex != wantIfIndex { continue }`).
func (s *Socket) Receive(ctx context.Context) (net.IP, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.pc.SetReadDeadline(deadline); err != nil {
			return nil, &errors.TransportError{Operation: "set read deadline", Err: err}
		}
	} else {
		s.pc.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, 4096)
	for {
		_, cm, peer, err := s.p6.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, &errors.TimeoutError{Operation: "receive", Details: "deadline exceeded", Err: err}
			}
			return nil, &errors.TransportError{Operation: "receive", Err: err}
		}
		if cm == nil || cm.IfIndex != s.ifi.Index {
			continue
		}
		return addrIP(peer), nil
	}
}

func addrIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPAddr:
		return v.IP
	case *net.UDPAddr:
		return v.IP
	default:
		return nil
	}
}

// Close releases the socket.
func (s *Socket) Close() error {
	if err := s.pc.Close(); err != nil {
		return &errors.TransportError{Operation: "close", Err: err}
	}
	return nil
}
