package wpactrl

import "fmt"

// WPSPBC activates WPS Push Button Mode on the current interface. This
// must be run on the group/AP interface, e.g. the P2P GO's interface
// when a client is joining via pushbutton.
func (c *Client) WPSPBC() error { return c.RequestOK("WPS_PBC") }

// WPSPIN starts WPS PIN method for a single enrollee. addr may be a
// peer's device address or "any" to accept the PIN from any station
// (restricting it to one-time use). It returns a ProtocolError unless
// wpa_supplicant's reply echoes pin exactly.
func (c *Client) WPSPIN(addr, pin string) error {
	if addr == "" {
		addr = "any"
	}
	return c.RequestCheck(fmt.Sprintf("WPS_PIN %s %s", addr, pin), pin)
}
