package ping

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// fakeEchoSocket is an in-memory echoSocket for testing the scheduling
// loop without a raw ICMPv6 socket.
type fakeEchoSocket struct {
	mu      sync.Mutex
	pending []net.IP
	sends   int
	closed  bool
}

func (f *fakeEchoSocket) push(addr net.IP) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, addr)
}

func (f *fakeEchoSocket) SendEchoRequest(id, seq int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return nil
}

func (f *fakeEchoSocket) Receive(ctx context.Context) (net.IP, error) {
	for {
		f.mu.Lock()
		if len(f.pending) > 0 {
			addr := f.pending[0]
			f.pending = f.pending[1:]
			f.mu.Unlock()
			return addr, nil
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, &errors.TimeoutError{Operation: "receive", Details: "deadline exceeded"}
		case <-time.After(time.Millisecond):
		}
	}
}

func (f *fakeEchoSocket) Close() error {
	f.closed = true
	return nil
}

func newTestPinger(t *testing.T, sock *fakeEchoSocket, opts ...Option) *Pinger {
	t.Helper()
	allOpts := append([]Option{
		WithPingInterval(20 * time.Millisecond),
		WithPurgeInterval(20 * time.Millisecond),
		WithLifetime(50 * time.Millisecond),
		WithOwnAddresses(nil),
	}, opts...)
	p, err := New("test0", allOpts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.sock = sock
	return p
}

func TestPinger_JoinAndLeave(t *testing.T) {
	sock := &fakeEchoSocket{}
	p := newTestPinger(t, sock)

	var mu sync.Mutex
	var events []Notification
	unsub := p.Subscribe(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, n)
	})
	defer unsub()

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	peer := net.ParseIP("fe80::1")
	sock.push(peer)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 1 {
		t.Fatal("expected at least a Joined notification")
	}
	if events[0].Kind != Joined || !events[0].Addr.Equal(peer) {
		t.Errorf("events[0] = %+v, want Joined %v", events[0], peer)
	}
	if len(events) < 2 {
		t.Fatal("expected a Left notification once the lifetime expired")
	}
	if events[1].Kind != Left || !events[1].Addr.Equal(peer) {
		t.Errorf("events[1] = %+v, want Left %v", events[1], peer)
	}
}

func TestPinger_OwnAddressExcluded(t *testing.T) {
	self := net.ParseIP("fe80::abcd")
	sock := &fakeEchoSocket{}
	p := newTestPinger(t, sock, WithOwnAddresses([]net.IP{self}))

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	sock.push(self)
	time.Sleep(100 * time.Millisecond)

	if len(p.Peers()) != 0 {
		t.Errorf("own address should never appear in Peers(), got %+v", p.Peers())
	}
}

func TestPinger_SendsPeriodically(t *testing.T) {
	sock := &fakeEchoSocket{}
	p := newTestPinger(t, sock, WithPingInterval(10*time.Millisecond))

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)

	sock.mu.Lock()
	sends := sock.sends
	sock.mu.Unlock()
	if sends < 3 {
		t.Errorf("expected several periodic sends, got %d", sends)
	}
}

func TestPinger_DoubleStart(t *testing.T) {
	sock := &fakeEchoSocket{}
	p := newTestPinger(t, sock)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(); err == nil {
		t.Error("expected LifecycleError on double Start")
	}
}
