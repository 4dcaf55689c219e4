package wpactrl

import (
	"net"
	"strings"
	"testing"
)

func TestP2PServiceAdvertisePTR_SendsBonjourCommand(t *testing.T) {
	dir := t.TempDir()
	var lastCmd string
	addr := &net.UnixAddr{Name: dir + "/wlan0", Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, from, err := conn.ReadFromUnix(buf)
			if err != nil {
				return
			}
			lastCmd = string(buf[:n])
			conn.WriteToUnix([]byte("OK"), from)
		}
	}()

	c, _ := New(WithSocketDir(dir))
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if err := c.P2PServiceAdvertisePTR("host._spinet._tcp.local.", "_spinet._tcp.local."); err != nil {
		t.Fatalf("P2PServiceAdvertisePTR: %v", err)
	}
	if !strings.HasPrefix(lastCmd, "P2P_SERVICE_ADD bonjour ") {
		t.Errorf("command = %q, want P2P_SERVICE_ADD bonjour ...", lastCmd)
	}
}

func TestP2PFind_BuildsOptionalArgs(t *testing.T) {
	dir := t.TempDir()
	var lastCmd string
	addr := &net.UnixAddr{Name: dir + "/wlan0", Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, from, err := conn.ReadFromUnix(buf)
			if err != nil {
				return
			}
			lastCmd = string(buf[:n])
			conn.WriteToUnix([]byte("OK"), from)
		}
	}()

	c, _ := New(WithSocketDir(dir))
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if err := c.P2PFind(P2PFindOptions{DurationSeconds: 5, SearchType: "social"}); err != nil {
		t.Fatalf("P2PFind: %v", err)
	}
	if lastCmd != "P2P_FIND 5 type=social" {
		t.Errorf("command = %q", lastCmd)
	}
}

func TestP2PServiceDel_SendsArgsVerbatim(t *testing.T) {
	dir := t.TempDir()
	var lastCmd string
	addr := &net.UnixAddr{Name: dir + "/wlan0", Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, from, err := conn.ReadFromUnix(buf)
			if err != nil {
				return
			}
			lastCmd = string(buf[:n])
			conn.WriteToUnix([]byte("OK"), from)
		}
	}()

	c, _ := New(WithSocketDir(dir))
	if err := c.Start("wlan0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if err := c.P2PServiceDel("bonjour 0c5f7370696e6574045f746370c00c000c01 00"); err != nil {
		t.Fatalf("P2PServiceDel: %v", err)
	}
	if lastCmd != "P2P_SERVICE_DEL bonjour 0c5f7370696e6574045f746370c00c000c01 00" {
		t.Errorf("command = %q", lastCmd)
	}
}
