package wpactrl

import (
	"strconv"
	"strings"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// Event is a single asynchronous notification received on an attached
// event socket, such as "P2P-GROUP-STARTED" or "CTRL-EVENT-CONNECTED".
type Event struct {
	// Ifname is the interface the event arrived on: the group interface
	// for most events, or the p2p-dev-* device interface (normally
	// p2p-dev-<ifname>) for P2P device-level events when WithP2P is
	// enabled.
	Ifname string
	// Priority is the wpa_supplicant debug priority tag (e.g. the "3" in
	// "<3>CTRL-EVENT-SCAN-RESULTS"), or -1 if the line carried none.
	Priority int
	// Name is the event name: the first whitespace-delimited token.
	Name string
	// Data is everything after Name, unparsed. Callers that need
	// key=value fields from it should call ParseFields.
	Data string
}

// ParseFields parses Data as a parse_kv_line-style key=value payload.
func (e Event) ParseFields() (map[string]string, error) {
	return parseKVLine(e.Data)
}

// parseEvent splits a raw event line into its optional priority tag,
// name, and remaining data.
func parseEvent(ifname, raw string) (Event, error) {
	data := strings.TrimSpace(raw)
	priority := -1

	if strings.HasPrefix(data, "<") {
		end := strings.IndexByte(data, '>')
		if end == -1 {
			return Event{}, &errors.ProtocolError{Operation: "parse event", Details: "malformed priority tag: " + data}
		}
		p, err := strconv.Atoi(data[1:end])
		if err != nil {
			return Event{}, &errors.ProtocolError{Operation: "parse event", Details: "non-numeric priority: " + data, Err: err}
		}
		priority = p
		data = strings.TrimLeft(data[end+1:], " ")
	}

	name := data
	rest := ""
	if sp := strings.IndexByte(data, ' '); sp != -1 {
		name = data[:sp]
		rest = data[sp+1:]
	}
	return Event{Ifname: ifname, Priority: priority, Name: name, Data: rest}, nil
}

type subscription struct {
	id uint64
	fn func(Event)
}

// Subscribe registers fn to run for every event named event, or for
// every event regardless of name when event is "*". It returns a
// function that removes the subscription; calling it more than once is
// a no-op.
func (c *Client) Subscribe(event string, fn func(Event)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subs[event] = append(c.subs[event], subscription{id: id, fn: fn})

	removed := false
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if removed {
			return
		}
		removed = true
		list := c.subs[event]
		for i, s := range list {
			if s.id == id {
				c.subs[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) dispatch(ev Event) {
	c.subMu.Lock()
	subs := append([]subscription(nil), c.subs[ev.Name]...)
	if ev.Name != "*" {
		subs = append(subs, c.subs["*"]...)
	}
	c.subMu.Unlock()

	for _, s := range subs {
		c.invokeSubscriber(s, ev)
	}
}

// invokeSubscriber runs one subscriber's handler, recovering a panic so
// that a single misbehaving handler neither aborts dispatch to its
// siblings nor kills the event-reader goroutine — the Go analogue of
// logging a handler exception and continuing.
func (c *Client) invokeSubscriber(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event subscriber panicked", "event", ev.Name, "ifname", ev.Ifname, "panic", r)
		}
	}()
	s.fn(ev)
}
