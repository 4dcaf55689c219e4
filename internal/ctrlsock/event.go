package ctrlsock

import (
	"strings"
	"time"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// EventSocket is a Socket used only for the ATTACH/DETACH event
// protocol: attach once, then every subsequent datagram until detach is
// an unsolicited event line.
type EventSocket struct {
	*Socket
	attached bool
}

// NewEventSocket creates an EventSocket bound to remotePath.
func NewEventSocket(dir, remotePath string) (*EventSocket, error) {
	s, err := NewSocket(dir)
	if err != nil {
		return nil, err
	}
	s.SetRemote(remotePath)
	return &EventSocket{Socket: s}, nil
}

// Attach sends ATTACH and waits for the literal "OK" reply, within
// timeout.
func (e *EventSocket) Attach(timeout time.Duration) error {
	if err := e.Send([]byte("ATTACH")); err != nil {
		return err
	}
	reply, err := e.ReceiveWithin(timeout)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(reply)) != "OK" {
		return &errors.ProtocolError{Operation: "attach", Details: "unexpected reply", Err: &errors.CommandFailed{Reply: string(reply)}}
	}
	e.attached = true
	return nil
}

// Detach sends DETACH and drains datagrams — which may legitimately be
// events that arrived before the supplicant processed DETACH — until it
// sees the literal "OK" or "FAIL", within timeout. The attached remote
// path is captured once at the top of the call, before DETACH is sent,
// so the error messages below never name a stale or unbound value.
func (e *EventSocket) Detach(timeout time.Duration) error {
	remote := e.Remote()
	if err := e.Send([]byte("DETACH")); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &errors.TimeoutError{Operation: "detach", Details: "detach from " + remote + " timed out"}
		}
		reply, err := e.ReceiveWithin(remaining)
		if err != nil {
			return err
		}
		line := strings.TrimSpace(string(reply))
		if line == "OK" {
			e.attached = false
			return nil
		}
		if line == "FAIL" {
			return &errors.ProtocolError{Operation: "detach", Details: "detach from " + remote + " failed", Err: &errors.CommandFailed{Reply: line}}
		}
		// Otherwise: a straggling event line. Keep draining.
	}
}

// Attached reports whether the socket currently believes itself
// attached (an EventSocket is either detached or attached to exactly
// one remote path).
func (e *EventSocket) Attached() bool { return e.attached }
