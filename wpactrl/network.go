package wpactrl

import (
	"fmt"
	"strings"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// paramTransform rewrites a SET_NETWORK value before it goes on the
// wire. Most parameters are sent as-is; only ssid and psk are wrapped
// in double quotes.
type paramTransform func(value string) string

func identity(v string) string { return v }
func quoted(v string) string   { return fmt.Sprintf("%q", v) }

// networkParamTable lists every SET_NETWORK key this client accepts,
// and how to encode its value — carried over from the reference
// client's NET_PARAMS table, where keys mapped either to True
// (identity) or to a quoting function.
var networkParamTable = buildNetworkParamTable()

func buildNetworkParamTable() map[string]paramTransform {
	identityKeys := []string{
		"altsubject_match", "altsubject_match2", "anonymous_identity",
		"ap_max_inactivity", "auth_alg", "beacon_int", "bg_scan_period",
		"bgscan", "bssid", "bssid_blacklist", "bssid_whitelist", "ca_cert",
		"ca_cert2", "ca_cert2_id", "ca_cert_id", "ca_path", "ca_path2",
		"cert2_id", "cert_id", "client_cert", "client_cert2", "dh_file",
		"dh_file2", "disabled", "domain_match", "domain_match2",
		"domain_suffix_match", "domain_suffix_match2",
		"dot11MeshConfirmTimeout", "dot11MeshHoldingTimeout",
		"dot11MeshMaxRetries", "dot11MeshRetryTimeout", "dtim_period",
		"eap", "eap_workaround", "eapol_flags", "engine", "engine2",
		"engine2_id", "engine_id", "erp", "fixed_freq", "fragment_size",
		"freq_list", "frequency", "go_p2p_dev_addr", "group", "ht",
		"ht40", "id_str", "identity", "ignore_broadcast_ssid", "key2_id",
		"key_id", "key_mgmt", "mac_addr", "max_oper_chwidth",
		"mesh_basic_rates", "mixed_cell", "mode", "no_auto_peer", "ocsp",
		"openssl_ciphers", "p2p_client_list", "pac_file", "pairwise",
		"password", "pbss", "pcsc", "peerkey", "phase1", "phase2", "pin",
		"pin2", "priority", "private_key", "private_key2",
		"private_key2_passwd", "private_key_passwd",
		"proactive_key_caching", "proto", "psk_list", "scan_freq",
		"scan_ssid", "sim_num", "subject_match", "subject_match2", "vht",
		"vht_center_freq1", "vht_center_freq2", "wep_key0", "wep_key1",
		"wep_key2", "wep_key3", "wep_tx_keyidx", "wpa_ptk_rekey",
		"wps_disabled",
	}
	t := make(map[string]paramTransform, len(identityKeys)+2)
	for _, k := range identityKeys {
		t[k] = identity
	}
	t["ssid"] = quoted
	t["psk"] = quoted
	return t
}

// SetNetworkParam sends SET_NETWORK id key value, quoting value when the
// parameter table calls for it. An unrecognized key is rejected locally
// with UnsupportedParameter rather than sent to wpa_supplicant, since
// the daemon's own rejection message gives no indication of which
// parameter name was the problem.
func (c *Client) SetNetworkParam(id, key, value string) error {
	transform, ok := networkParamTable[key]
	if !ok {
		return &errors.ProtocolError{Operation: "set_network", Details: "unrecognized parameter", Err: &errors.UnsupportedParameter{Name: key}}
	}
	return c.RequestOK(fmt.Sprintf("SET_NETWORK %s %s %s", id, key, transform(value)))
}

// GetNetworkParam requests GET_NETWORK id key and strips the quotes
// wpa_supplicant wraps string-typed values in.
func (c *Client) GetNetworkParam(id, key string) (string, error) {
	v, err := c.Request(fmt.Sprintf("GET_NETWORK %s %s", id, key))
	if err != nil {
		return "", err
	}
	if v == "FAIL" {
		return "", &errors.ProtocolError{Operation: "get_network", Details: fmt.Sprintf("%s %s", id, key), Err: &errors.CommandFailed{Reply: v}}
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return v, nil
}

// AddNetwork creates a new disabled network with empty configuration
// and returns its network id.
func (c *Client) AddNetwork() (string, error) {
	id, err := c.Request("ADD_NETWORK")
	if err != nil {
		return "", err
	}
	if id == "FAIL" {
		return "", &errors.ProtocolError{Operation: "add_network", Err: &errors.CommandFailed{Reply: id}}
	}
	return id, nil
}

// RemoveNetwork removes a network by id, or "all" to remove every
// configured network.
func (c *Client) RemoveNetwork(id string) error {
	return c.RequestOK("REMOVE_NETWORK " + id)
}

// SelectNetwork selects a single network, disabling all others.
func (c *Client) SelectNetwork(id string) error {
	return c.RequestOK("SELECT_NETWORK " + id)
}

// EnableNetwork enables a network by id, or "all".
func (c *Client) EnableNetwork(id string) error {
	return c.RequestOK("ENABLE_NETWORK " + id)
}

// DisableNetwork disables a network by id, or "all".
func (c *Client) DisableNetwork(id string) error {
	return c.RequestOK("DISABLE_NETWORK " + id)
}

// ListNetworks lists configured networks as a parsed table
// (id/ssid/bssid/flags columns).
func (c *Client) ListNetworks() (rows [][]string, headings []string, err error) {
	raw, err := c.Request("LIST_NETWORKS")
	if err != nil {
		return nil, nil, err
	}
	return parseTable(raw)
}

// ScanResults returns the latest BSS scan as a parsed table.
func (c *Client) ScanResults() (rows [][]string, headings []string, err error) {
	raw, err := c.Request("SCAN_RESULTS")
	if err != nil {
		return nil, nil, err
	}
	return parseTable(raw)
}

// BSS returns detailed per-BSS scan results for the BSS identified by
// index or BSSID. It returns (nil, nil) if the index/BSSID is absent
// from the current scan results.
func (c *Client) BSS(idOrBSSID string) (map[string]string, error) {
	raw, err := c.Request("BSS " + idOrBSSID)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "Invalid BSS command") {
		return nil, &errors.ProtocolError{Operation: "bss", Details: raw}
	}
	return parseDict(raw)
}

// CreateNetwork adds a network and sets every key/value pair from
// config, rolling the network back with RemoveNetwork if any
// SetNetworkParam call fails partway through.
func (c *Client) CreateNetwork(config map[string]string) (id string, err error) {
	id, err = c.AddNetwork()
	if err != nil {
		return "", err
	}
	for k, v := range config {
		if err := c.SetNetworkParam(id, k, v); err != nil {
			if rmErr := c.RemoveNetwork(id); rmErr != nil {
				c.logger.Warn("rollback of failed CreateNetwork left a stray network", "id", id, "err", rmErr)
			}
			return "", err
		}
	}
	return id, nil
}
