package wire

import "encoding/hex"

// ToHex renders b as lowercase hex ASCII, the form wpa_supplicant's
// P2P_SERV_DISC_REQ and P2P_SERVICE_ADD commands expect.
func ToHex(b []byte) string { return hex.EncodeToString(b) }

// FromHex is the inverse of ToHex.
func FromHex(s string) ([]byte, error) { return hex.DecodeString(s) }
