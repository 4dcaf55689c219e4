package ping

import (
	"testing"
)

func TestManager_IgnoresNonGORole(t *testing.T) {
	m := NewManager(nil)
	m.HandleGroupEvent("P2P-GROUP-STARTED", "wlan0-p2p-0 client ssid=\"DIRECT-xy\"")
	if m.Pinger("wlan0-p2p-0") != nil {
		t.Error("a client-role group should not start a pinger")
	}
}

func TestManager_MalformedEventIgnored(t *testing.T) {
	m := NewManager(nil)
	m.HandleGroupEvent("P2P-GROUP-STARTED", "onlyonefield")
	if len(m.pingers) != 0 {
		t.Error("malformed event should not register a pinger")
	}
}

func TestManager_StopWithoutStartIsNoop(t *testing.T) {
	m := NewManager(nil)
	m.HandleGroupEvent("P2P-GROUP-REMOVED", "wlan0-p2p-0 GO")
	if len(m.pingers) != 0 {
		t.Error("stopping a never-started interface should be a no-op")
	}
}
