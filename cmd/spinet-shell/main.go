// Command spinet-shell is a minimal interactive view over a single
// wpa_supplicant P2P interface: it shows the interface's address and
// wpa_supplicant state and the live set of group-member peers
// discovered by the IPv6 pinger. It wires no logic of its own beyond
// what is needed to start those two collaborators and feed the pinger
// the control client's group lifecycle events.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/columbia-irt/spinet-go/ping"
	"github.com/columbia-irt/spinet-go/wpactrl"
)

func main() {
	var (
		ifname  = flag.String("iface", "wlan0", "P2P group interface to monitor")
		sockDir = flag.String("sock-dir", "/run/wpa_supplicant", "wpa_supplicant control socket directory")
		logPath = flag.String("log-file", "spinet-shell.log", "path to write diagnostic logs (kept off stderr so it doesn't corrupt the TUI)")
		level   = flag.String("log-level", "info", "debug|info|warn|error")
		refresh = flag.Duration("refresh", 2*time.Second, "view refresh interval")
	)
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: parseLogLevel(*level)}))

	client, err := wpactrl.New(
		wpactrl.WithSocketDir(*sockDir),
		wpactrl.WithLogger(logger.With("component", "wpactrl")),
		wpactrl.WithP2P(true),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build control client: %v\n", err)
		os.Exit(1)
	}

	manager := ping.NewManager(logger.With("component", "ping"))
	unsubStarted := client.Subscribe("P2P-GROUP-STARTED", func(ev wpactrl.Event) {
		manager.HandleGroupEvent("P2P-GROUP-STARTED", ev.Data)
	})
	unsubRemoved := client.Subscribe("P2P-GROUP-REMOVED", func(ev wpactrl.Event) {
		manager.HandleGroupEvent("P2P-GROUP-REMOVED", ev.Data)
	})
	defer unsubStarted()
	defer unsubRemoved()

	if err := client.Start(*ifname); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start control client: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Stop(); err != nil {
			logger.Warn("client stop failed", "err", err)
		}
		manager.StopAll()
	}()

	m := newModel(client, manager, *ifname, *refresh)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
