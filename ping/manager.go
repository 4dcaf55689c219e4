package ping

import (
	"log/slog"
	"strings"
	"sync"
)

// Manager owns one Pinger per P2P group interface where the local
// device is Group Owner, starting and stopping them in response to
// P2P-GROUP-STARTED/REMOVED-style notifications. It has no dependency
// on wpactrl: callers wire it in with their own event subscription
// (see wpactrl.Client.Subscribe), keeping the pinger and the control
// client independent collaborators as they are everywhere else in this
// module.
type Manager struct {
	logger *slog.Logger
	opts   []Option

	mu      sync.Mutex
	pingers map[string]*Pinger
}

// NewManager builds a Manager. opts are applied to every Pinger it
// creates.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger, opts: opts, pingers: make(map[string]*Pinger)}
}

// HandleGroupEvent parses a "P2P-GROUP-STARTED"/"P2P-GROUP-REMOVED"
// event payload (space-delimited, first field the interface name,
// second field the local role — "GO" or "client") and starts or stops
// the corresponding Pinger. Non-GO roles and malformed payloads are
// ignored, matching the reference client: only the group owner runs a
// pinger, since only it needs to discover joining clients.
func (m *Manager) HandleGroupEvent(eventName, data string) {
	fields := strings.Fields(data)
	if len(fields) < 2 {
		m.logger.Warn("malformed group event, ignoring", "event", eventName, "data", data)
		return
	}
	ifname, role := fields[0], fields[1]
	if role != "GO" {
		return
	}

	switch eventName {
	case "P2P-GROUP-STARTED":
		m.start(ifname)
	case "P2P-GROUP-REMOVED":
		m.stop(ifname)
	}
}

func (m *Manager) start(ifname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pingers[ifname]; exists {
		return
	}

	p, err := New(ifname, m.opts...)
	if err != nil {
		m.logger.Error("failed to build pinger", "ifname", ifname, "err", err)
		return
	}
	if err := p.Start(); err != nil {
		m.logger.Error("failed to start pinger", "ifname", ifname, "err", err)
		return
	}
	m.pingers[ifname] = p
}

func (m *Manager) stop(ifname string) {
	m.mu.Lock()
	p, exists := m.pingers[ifname]
	if exists {
		delete(m.pingers, ifname)
	}
	m.mu.Unlock()

	if !exists {
		return
	}
	if err := p.Stop(); err != nil {
		m.logger.Warn("failed to stop pinger cleanly", "ifname", ifname, "err", err)
	}
}

// Pinger returns the running Pinger for ifname, or nil if none is
// active (the interface isn't a GO, or hasn't started one yet).
func (m *Manager) Pinger(ifname string) *Pinger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingers[ifname]
}

// StopAll stops every running pinger, e.g. on client shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	pingers := make([]*Pinger, 0, len(m.pingers))
	for ifname := range m.pingers {
		pingers = append(pingers, m.pingers[ifname])
		delete(m.pingers, ifname)
	}
	m.mu.Unlock()

	for _, p := range pingers {
		if err := p.Stop(); err != nil {
			m.logger.Warn("failed to stop pinger during shutdown", "err", err)
		}
	}
}
