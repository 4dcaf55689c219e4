package wire

import (
	"bytes"
	"sort"
	"strings"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// ANQPData is the service-type descriptor carried by every ANQP query
// and successful response: a domain name naming the service type, a
// record type (PTR or TXT), and a constant version byte.
//
// Wire format: <name><type:u16 LE><version:u8=1>.
type ANQPData struct {
	Name DomainName
	Type RecordType
}

// RecordType distinguishes the two DNS-SD record kinds this dialect
// tunnels: PTR (service-type → instance-name) and TXT (instance
// metadata).
type RecordType uint16

const (
	// RecordTypePTR is the DNS PTR record type (12).
	RecordTypePTR RecordType = 12
	// RecordTypeTXT is the DNS TXT record type (16).
	RecordTypeTXT RecordType = 16
)

// anqpDataVersion is the constant version byte trailing ANQPData.
const anqpDataVersion = 1

// Encode appends d's wire representation to buf, using c to compress
// d.Name.
func (d ANQPData) Encode(buf *bytes.Buffer, c *Compressor) error {
	if err := EncodeName(buf, d.Name, c); err != nil {
		return err
	}
	writeU16LE(buf, uint16(d.Type))
	buf.WriteByte(anqpDataVersion)
	return nil
}

// DecodeANQPData reads an ANQPData from data at offset, using c to
// expand d.Name's back-references, and returns the value plus the
// offset just past it. A version byte other than 1 is a CodecError.
func DecodeANQPData(data []byte, offset int, c *Compressor) (ANQPData, int, error) {
	name, offset, err := DecodeName(data, offset, c)
	if err != nil {
		return ANQPData{}, 0, err
	}
	if offset+3 > len(data) {
		return ANQPData{}, 0, &errors.CodecError{Operation: "decode ANQPData", Details: "truncated input", Kind: errors.KindTruncatedInput}
	}
	typ := RecordType(readU16LE(data[offset:]))
	version := data[offset+2]
	offset += 3
	if version != anqpDataVersion {
		return ANQPData{}, 0, &errors.CodecError{Operation: "decode ANQPData", Details: "unsupported version", Kind: errors.KindUnsupportedVersion}
	}
	return ANQPData{Name: name, Type: typ}, offset, nil
}

// PTRData is a domain name encoded as PTR rdata: the instance name a
// PTR record points to. Per the wire dialect, its compressor's dynamic
// slot is bound to the enclosing ANQPData name, so the instance name's
// trailing labels collapse to the 0x27 back-reference.
type PTRData struct {
	Name DomainName
}

// Encode writes p's wire representation using c (normally the result of
// NewCompressorForName bound to the enclosing ANQPData name).
func (p PTRData) Encode(buf *bytes.Buffer, c *Compressor) error {
	return EncodeName(buf, p.Name, c)
}

// DecodePTRData reads PTR rdata from data at offset using c.
func DecodePTRData(data []byte, offset int, c *Compressor) (PTRData, int, error) {
	name, offset, err := DecodeName(data, offset, c)
	if err != nil {
		return PTRData{}, 0, err
	}
	return PTRData{Name: name}, offset, nil
}

// TXTData is an ordered mapping of ASCII key/value pairs, serialized as
// DNS TXT <len>key=value entries. Insertion order is preserved on the
// wire, matching RFC 1035's TXT-RDATA character-string sequence.
type TXTData struct {
	keys   []string
	values map[string]string
}

// NewTXTData returns an empty TXTData ready for Set calls.
func NewTXTData() *TXTData {
	return &TXTData{values: make(map[string]string)}
}

// Set appends key=value, or updates value in place if key was already set.
func (t *TXTData) Set(key, value string) {
	if t.values == nil {
		t.values = make(map[string]string)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Get returns the value for key and whether it was present.
func (t *TXTData) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (t *TXTData) Keys() []string { return append([]string(nil), t.keys...) }

// Equal reports whether t and other carry the same key/value pairs,
// ignoring order (used by round-trip tests; the wire order is checked
// separately).
func (t *TXTData) Equal(other *TXTData) bool {
	if len(t.keys) != len(other.keys) {
		return false
	}
	for k, v := range t.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Encode appends t's wire representation to buf. An empty TXTData
// encodes as the single byte 0x00.
func (t *TXTData) Encode(buf *bytes.Buffer) error {
	if len(t.keys) == 0 {
		buf.WriteByte(0)
		return nil
	}
	for _, k := range t.keys {
		entry := k + "=" + t.values[k]
		if len(entry) > 255 {
			return &errors.CodecError{Operation: "encode TXTData", Details: "entry too long", Kind: errors.KindLabelTooLong}
		}
		buf.WriteByte(byte(len(entry)))
		buf.WriteString(entry)
	}
	return nil
}

// DecodeTXTData reads TXT rdata from data[offset:]. The reader accepts,
// but the writer never emits, a terminating zero-length entry.
func DecodeTXTData(data []byte, offset int) (*TXTData, int, error) {
	t := NewTXTData()
	for offset < len(data) {
		l := data[offset]
		offset++
		if l == 0 {
			break
		}
		if offset+int(l) > len(data) {
			return nil, 0, &errors.CodecError{Operation: "decode TXTData", Details: "truncated input", Kind: errors.KindTruncatedInput}
		}
		entry := string(data[offset : offset+int(l)])
		offset += int(l)
		eq := strings.IndexByte(entry, '=')
		if eq == -1 {
			return nil, 0, &errors.CodecError{Operation: "decode TXTData", Details: "malformed entry: missing '='", Kind: errors.KindMalformedName}
		}
		t.Set(entry[:eq], entry[eq+1:])
	}
	return t, offset, nil
}

// SortedKeys returns t's keys in lexical order; used only for debug
// rendering, never for wire encoding (which must preserve insertion order).
func (t *TXTData) SortedKeys() []string {
	keys := t.Keys()
	sort.Strings(keys)
	return keys
}

func writeU16LE(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
}

func readU16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
