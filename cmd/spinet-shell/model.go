package main

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/columbia-irt/spinet-go/ping"
	"github.com/columbia-irt/spinet-go/wpactrl"
)

// This package intentionally contains no deep engineering: it is a thin
// view over wpactrl.Client and ping.Manager, the two stateful
// collaborators it reads from on a timer. All protocol, framing, and
// concurrency logic lives in those packages.

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	peerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var keyQuit = key.NewBinding(
	key.WithKeys("q", "ctrl+c"),
	key.WithHelp("q", "quit"),
)

type tickMsg time.Time

// snapshot is the data the model renders; it is recomputed on every
// tick from the live client/manager rather than pushed. Address and
// UUID come from the client's TTL cache and peers from the pinger's
// in-memory map, but Status issues a live STATUS request on every tick.
type snapshot struct {
	ifname  string
	address string
	uuid    string
	status  map[string]string
	peers   []net.IP
	err     error
}

type model struct {
	client   *wpactrl.Client
	manager  *ping.Manager
	ifname   string
	refresh  time.Duration
	snapshot snapshot
	quitting bool
}

func newModel(client *wpactrl.Client, manager *ping.Manager, ifname string, refresh time.Duration) model {
	return model{client: client, manager: manager, ifname: ifname, refresh: refresh}
}

func (m model) Init() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) {
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		m.snapshot = m.collect()
		return m, tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

func (m model) collect() snapshot {
	snap := snapshot{ifname: m.ifname}

	addr, err := m.client.Address()
	if err != nil {
		snap.err = err
		return snap
	}
	snap.address = addr

	if uuid, err := m.client.UUID(); err == nil {
		snap.uuid = uuid
	}
	if status, err := m.client.Status(); err == nil {
		snap.status = status
	}
	if p := m.manager.Pinger(m.ifname); p != nil {
		peers := p.Peers()
		sort.Slice(peers, func(i, j int) bool { return peers[i].String() < peers[j].String() })
		snap.peers = peers
	}
	return snap
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("spinet-shell  ·  %s", m.ifname)))
	b.WriteString("\n\n")

	if m.snapshot.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.snapshot.err)))
		b.WriteString("\n")
	} else {
		b.WriteString(labelStyle.Render("address: ") + m.snapshot.address + "\n")
		if m.snapshot.uuid != "" {
			b.WriteString(labelStyle.Render("uuid:    ") + m.snapshot.uuid + "\n")
		}
		if state := m.snapshot.status["wpa_state"]; state != "" {
			b.WriteString(labelStyle.Render("state:   ") + state + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("group peers (%d)", len(m.snapshot.peers))))
	b.WriteString("\n")
	if len(m.snapshot.peers) == 0 {
		b.WriteString(labelStyle.Render("  (none seen — this interface may not be a group owner yet)\n"))
	}
	for _, p := range m.snapshot.peers {
		b.WriteString(peerStyle.Render("  " + p.String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("q: quit"))
	return b.String()
}
