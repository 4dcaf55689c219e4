package wpactrl

import (
	"net"
	"strings"
	"testing"
	"time"
)

// fakeSupplicant is a minimal stand-in for wpa_supplicant's control
// socket: it answers requests with canned replies and, once ATTACH is
// received, pushes a scripted sequence of event lines before accepting
// DETACH.
type fakeSupplicant struct {
	conn    *net.UnixConn
	replies map[string]string
	events  []string
}

func newFakeSupplicant(t *testing.T, sockDir string) *fakeSupplicant {
	t.Helper()
	addr := &net.UnixAddr{Name: sockDir + "/wlan0", Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &fakeSupplicant{
		conn: conn,
		replies: map[string]string{
			"PING":   "PONG",
			"STATUS": "uuid=abc-123\naddress=aa:bb:cc:dd:ee:ff\np2p_device_address=11:22:33:44:55:66\n",
		},
	}
}

func (f *fakeSupplicant) serve(t *testing.T) {
	t.Helper()
	go func() {
		buf := make([]byte, 4096)
		attached := false
		for {
			n, from, err := f.conn.ReadFromUnix(buf)
			if err != nil {
				return
			}
			cmd := string(buf[:n])

			switch {
			case cmd == "ATTACH":
				attached = true
				f.conn.WriteToUnix([]byte("OK"), from)
				for _, ev := range f.events {
					f.conn.WriteToUnix([]byte(ev), from)
				}
			case cmd == "DETACH":
				attached = false
				f.conn.WriteToUnix([]byte("OK"), from)
			default:
				if reply, ok := f.replies[cmd]; ok {
					f.conn.WriteToUnix([]byte(reply), from)
				} else {
					f.conn.WriteToUnix([]byte("OK"), from)
				}
			}
			_ = attached
		}
	}()
}

func TestClient_StartStopRequest(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeSupplicant(t, dir)
	fake.serve(t)

	c, err := New(WithSocketDir(dir), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if err := c.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}

	uuid, err := c.UUID()
	if err != nil {
		t.Fatalf("UUID: %v", err)
	}
	if uuid != "abc-123" {
		t.Errorf("UUID = %q, want abc-123", uuid)
	}

	addr, err := c.Address()
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if addr != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Address = %q", addr)
	}
}

func TestClient_DoubleStart(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeSupplicant(t, dir)
	fake.serve(t)

	c, _ := New(WithSocketDir(dir))
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if err := c.Start("wlan0"); err == nil {
		t.Error("expected LifecycleError on double Start")
	}
}

func TestClient_EventSubscription(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeSupplicant(t, dir)
	fake.events = []string{"<3>P2P-DEVICE-FOUND aa:bb:cc:dd:ee:ff name='Peer'"}
	fake.serve(t)

	c, _ := New(WithSocketDir(dir))

	received := make(chan Event, 1)
	unsub := c.Subscribe("P2P-DEVICE-FOUND", func(ev Event) {
		received <- ev
	})
	defer unsub()

	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	select {
	case ev := <-received:
		if ev.Priority != 3 {
			t.Errorf("Priority = %d, want 3", ev.Priority)
		}
		if !strings.HasPrefix(ev.Data, "aa:bb:cc:dd:ee:ff") {
			t.Errorf("Data = %q", ev.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestClient_EventSubscriberPanicDoesNotSuppressSiblings(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeSupplicant(t, dir)
	fake.events = []string{"<3>P2P-DEVICE-FOUND aa:bb:cc:dd:ee:ff name='Peer'"}
	fake.serve(t)

	c, _ := New(WithSocketDir(dir))

	received := make(chan Event, 1)
	unsub1 := c.Subscribe("P2P-DEVICE-FOUND", func(ev Event) {
		panic("boom")
	})
	defer unsub1()
	unsub2 := c.Subscribe("P2P-DEVICE-FOUND", func(ev Event) {
		received <- ev
	})
	defer unsub2()

	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking sibling suppressed delivery to the other subscriber")
	}
}

func TestClient_RequestBeforeStart(t *testing.T) {
	c, _ := New()
	if _, err := c.Request("PING"); err == nil {
		t.Error("expected LifecycleError before Start")
	}
}

func TestClient_WithInterfaceRestoresOnError(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeSupplicant(t, dir)
	fake.serve(t)

	c, _ := New(WithSocketDir(dir))
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	err := c.WithInterface("p2p-dev-wlan0", func() error {
		return errTest
	})
	if err != errTest {
		t.Fatalf("WithInterface returned %v, want errTest", err)
	}

	// The request socket must be rebound back to wlan0's remote even
	// though fn returned an error.
	if err := c.Ping(); err != nil {
		t.Errorf("Ping after WithInterface error: %v", err)
	}
}

func TestClient_StationIteration(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeSupplicant(t, dir)
	fake.replies["STA-FIRST"] = "aa:bb:cc:dd:ee:ff\nrx_packets=3\n"
	fake.replies["STA-NEXT aa:bb:cc:dd:ee:ff"] = "FAIL"
	fake.serve(t)

	c, _ := New(WithSocketDir(dir))
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	var seen []string
	if err := c.AllStations(func(addr string, fields map[string]string) {
		seen = append(seen, addr)
		if fields["rx_packets"] != "3" {
			t.Errorf("rx_packets = %q", fields["rx_packets"])
		}
	}); err != nil {
		t.Fatalf("AllStations: %v", err)
	}
	if len(seen) != 1 || seen[0] != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("seen = %v", seen)
	}
}

func TestClient_DumpAndSet(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeSupplicant(t, dir)
	fake.replies["DUMP"] = "config_methods=physical_display virtual_push_button\n"
	fake.serve(t)

	c, _ := New(WithSocketDir(dir))
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if err := c.Set("bssid_filter", "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Errorf("Set: %v", err)
	}

	dump, err := c.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if dump["config_methods"] != "physical_display virtual_push_button" {
		t.Errorf("Dump = %v", dump)
	}
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
