// Package ctrlsock implements the wpa_supplicant local control-socket
// transport: unix datagram endpoints bound to a temporary local path,
// talking to a well-known remote control-interface path (e.g.
// /run/wpa_supplicant/wlan0). It provides the locked request/reply
// primitive and the attach/detach event primitive described by the
// control protocol; package wpactrl builds the typed client on top.
//
// The transport talks to the kernel through golang.org/x/sys/unix
// rather than net.UnixConn: wpa_supplicant's own reference client talks
// to a raw AF_UNIX/SOCK_DGRAM descriptor with select()-style waiting,
// and SO_RCVTIMEO gives the same bounded-wait primitive without needing
// net's heavier connected-socket model for an inherently connectionless
// protocol (every send names its destination explicitly; see Send).
package ctrlsock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// pollInterval bounds how long a Receive blocks between checks of
// ctx.Done() when ctx carries no deadline of its own. This stands in for
// the interrupt-socket-via-select pattern of the original client: rather
// than wiring a self-pipe, an idle Receive wakes periodically and
// re-checks cancellation.
const pollInterval = 500 * time.Millisecond

// Socket is a single unix datagram endpoint bound to a unique temporary
// local path. Its remote peer is not fixed at the kernel level — every
// send names its destination explicitly — which is how interface
// switching (wpactrl's WithInterface) rebinds a request socket without
// creating a new file descriptor.
type Socket struct {
	fd        int
	localPath string

	mu     sync.Mutex
	remote string
}

// NewSocket creates a unix datagram socket bound to a fresh temporary
// path under dir (or the default temp directory if dir is empty).
func NewSocket(dir string) (*Socket, error) {
	f, err := os.CreateTemp(dir, "wpas*.sock")
	if err != nil {
		return nil, &errors.TransportError{Operation: "create local path", Details: "failed to reserve temp file", Err: err}
	}
	localPath := f.Name()
	f.Close()
	os.Remove(localPath) // bind() below creates the socket file itself

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, &errors.TransportError{Operation: "create socket", Err: err}
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: localPath}); err != nil {
		unix.Close(fd)
		return nil, &errors.TransportError{Operation: "bind local socket", Details: localPath, Err: err}
	}
	return &Socket{fd: fd, localPath: localPath}, nil
}

// SetRemote binds subsequent Send calls to remotePath (Receive accepts a
// datagram from any sender and does not check it against remote). This is
// the mechanism behind wpactrl's scoped interface switch: since
// disconnecting a unix datagram socket has no portable meaning, we
// simply track the current destination address ourselves and name it on
// every send, rather than connect()-ing the descriptor.
func (s *Socket) SetRemote(remotePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = remotePath
}

// Remote returns the currently bound remote path.
func (s *Socket) Remote() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// Send writes data (ASCII) to the bound remote. A datagram send is
// all-or-nothing at the kernel level, so any error here is reported
// as-is; there is no short-write case to special-case as there would be
// with a stream socket.
func (s *Socket) Send(data []byte) error {
	s.mu.Lock()
	remote := s.remote
	s.mu.Unlock()
	if remote == "" {
		return &errors.TransportError{Operation: "send", Details: "socket has no bound remote"}
	}

	if err := unix.Sendto(s.fd, data, 0, &unix.SockaddrUnix{Name: remote}); err != nil {
		return &errors.TransportError{Operation: "send", Details: fmt.Sprintf("write to %s", remote), Err: err}
	}
	return nil
}

// setRecvTimeout installs SO_RCVTIMEO for the next Recvfrom call. A zero
// duration means block indefinitely, matching the kernel's own
// convention for this option.
func (s *Socket) setRecvTimeout(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

func isTimeout(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// Receive waits for a single datagram, honoring ctx's deadline or
// cancellation. A datagram that fills the 65536-byte buffer is treated
// as truncated.
func (s *Socket) Receive(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, &errors.TimeoutError{Operation: "receive", Details: "context done", Err: ctx.Err()}
		default:
		}

		wait := pollInterval
		var hardDeadline time.Time
		if deadline, ok := ctx.Deadline(); ok {
			hardDeadline = deadline
			if remaining := time.Until(deadline); remaining < wait {
				wait = remaining
			}
			if wait < 0 {
				return nil, &errors.TimeoutError{Operation: "receive", Details: "deadline exceeded"}
			}
		}

		if err := s.setRecvTimeout(wait); err != nil {
			return nil, &errors.TransportError{Operation: "receive", Details: "set receive timeout", Err: err}
		}

		bufPtr := getBuffer()
		n, _, err := unix.Recvfrom(s.fd, *bufPtr, 0)
		if err != nil {
			putBuffer(bufPtr)
			if isTimeout(err) {
				if !hardDeadline.IsZero() && !time.Now().Before(hardDeadline) {
					return nil, &errors.TimeoutError{Operation: "receive", Details: "deadline exceeded", Err: err}
				}
				continue
			}
			return nil, &errors.TransportError{Operation: "receive", Details: "read failed", Err: err}
		}
		if n >= MaxFrameLen {
			putBuffer(bufPtr)
			return nil, &errors.TransportError{Operation: "receive", Details: "truncated: frame filled the buffer"}
		}

		out := make([]byte, n)
		copy(out, (*bufPtr)[:n])
		putBuffer(bufPtr)
		return out, nil
	}
}

// ReceiveWithin is a convenience wrapper for a fixed relative timeout.
func (s *Socket) ReceiveWithin(timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Receive(ctx)
}

// Close releases the socket and unlinks its temporary local path.
func (s *Socket) Close() error {
	err := unix.Close(s.fd)
	os.Remove(s.localPath)
	if err != nil {
		return &errors.TransportError{Operation: "close", Details: s.localPath, Err: err}
	}
	return nil
}
