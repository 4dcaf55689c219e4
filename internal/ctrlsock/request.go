package ctrlsock

import (
	"context"
	"sync"
	"time"
)

// RequestSocket is a Socket dedicated to synchronous request/reply.
// Only one outstanding request may be in flight at a time: the
// wpa_supplicant protocol tags no response with its request, so
// overlapping requests on the same socket would ambiguate the reply.
// The mutex held for the whole send+receive window also guarantees a
// timed-out request never leaves a subsequent reply half-consumed.
type RequestSocket struct {
	*Socket
	mu sync.Mutex
}

// NewRequestSocket creates a RequestSocket bound to remotePath.
func NewRequestSocket(dir, remotePath string) (*RequestSocket, error) {
	s, err := NewSocket(dir)
	if err != nil {
		return nil, err
	}
	s.SetRemote(remotePath)
	return &RequestSocket{Socket: s}, nil
}

// Request sends data and waits for exactly one reply, within timeout.
func (r *RequestSocket) Request(data []byte, timeout time.Duration) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.Send(data); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Receive(ctx)
}

// Rebind switches the socket's remote path, returning the previous one
// so a scoped caller (wpactrl's WithInterface) can restore it. The swap
// itself is guarded by the Socket's own lock, but Rebind does not take
// r's request mutex and so does not serialize against concurrent
// Request calls: a Request issued by another goroutine while a rebind
// is in effect goes to the rebound remote. wpactrl.Client.WithInterface
// holds no lock across its scope either.
func (r *RequestSocket) Rebind(remotePath string) (previous string) {
	previous = r.Remote()
	r.SetRemote(remotePath)
	return previous
}
