// Package wire implements the binary-exact ANQP-tunneled DNS-SD codec
// used by P2P Service Discovery: domain names with the compressed
// back-reference dialect described below, PTR/TXT record data, and the
// ANQP query/response envelope. Every encode/decode pair round-trips
// byte-for-byte; see name_test.go and anqp_test.go.
//
// The dialect is deliberately narrow. wpa_supplicant hex-encodes these
// frames without a frame-base pointer, so there is no way to compute a
// general 14-bit DNS compression offset from payload position. Instead
// only three static suffix tokens and one dynamic per-frame token are
// supported; see Compressor.
package wire

import (
	"bytes"
	"strings"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// maxLabelLen is the RFC 1035 §3.1 limit: labels must be 63 octets or less.
const maxLabelLen = 63

// compressPrefix marks a two-byte back-reference token: a label whose
// first byte is 0xC0 is not a length-prefixed label but a compressed
// suffix reference.
const compressPrefix = 0xC0

// refPtrOffset is the offset within an ANQP response frame, 0x27, at
// which PTR rdata back-references the enclosing ANQPData name. It is
// also used as the in-memory key for the Compressor's dynamic slot;
// nothing here computes it from an actual buffer position.
const refPtrOffset = 0x27

// DomainName is an ordered sequence of ASCII labels. Equality is
// label-by-label case-insensitive (Equal), matching RFC 1035 domain
// name comparison rules.
type DomainName struct {
	Labels []string
}

// NewDomainName splits a dotted string such as "host._spinet._tcp.local."
// into its labels, dropping a single trailing empty label produced by a
// terminating dot.
func NewDomainName(s string) DomainName {
	labels := strings.Split(s, ".")
	if len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	return DomainName{Labels: labels}
}

// String renders the name as a dotted, dot-terminated string.
func (n DomainName) String() string {
	if len(n.Labels) == 0 {
		return "."
	}
	return strings.Join(n.Labels, ".") + "."
}

// Equal compares two names label-by-label, case-insensitively.
func (n DomainName) Equal(other DomainName) bool {
	if len(n.Labels) != len(other.Labels) {
		return false
	}
	for i := range n.Labels {
		if !strings.EqualFold(n.Labels[i], other.Labels[i]) {
			return false
		}
	}
	return true
}

// compressToken is a two-byte back-reference sequence, always starting
// with compressPrefix.
type compressToken [2]byte

// Compressor maps back-reference tokens to the label suffix they
// substitute, and the reverse mapping used while encoding. It carries a
// fixed static table (local / _tcp.local / _udp.local) plus at most one
// dynamic slot bound to the PTR name under encode. A Compressor is an
// explicit parameter to every encode/decode call in this package; it is
// never ambient state, so frames never accidentally share bindings.
type Compressor struct {
	decompress map[compressToken][]string
	compress   []compressorEntry
}

type compressorEntry struct {
	suffix []string
	token  compressToken
}

// NewCompressor returns a Compressor with only the static table bound.
func NewCompressor() *Compressor {
	c := &Compressor{
		decompress: map[compressToken][]string{
			{compressPrefix, 0x11}: {"local"},
			{compressPrefix, 0x0c}: {"_tcp", "local"},
			{compressPrefix, 0x1c}: {"_udp", "local"},
		},
		compress: []compressorEntry{
			{suffix: []string{"_tcp", "local"}, token: compressToken{compressPrefix, 0x0c}},
			{suffix: []string{"_udp", "local"}, token: compressToken{compressPrefix, 0x1c}},
			{suffix: []string{"local"}, token: compressToken{compressPrefix, 0x11}},
		},
	}
	return c
}

// NewCompressorForName returns a Compressor whose dynamic slot (the
// refPtrOffset token) is bound to ref's full label sequence. This is
// how PTR rdata back-references the enclosing ANQPData name.
func NewCompressorForName(ref DomainName) *Compressor {
	c := NewCompressor()
	token := compressToken{compressPrefix, refPtrOffset}
	c.decompress[token] = append([]string(nil), ref.Labels...)
	c.compress = append(c.compress, compressorEntry{suffix: append([]string(nil), ref.Labels...), token: token})
	return c
}

// match returns the back-reference token for the given label suffix, if
// the compressor has one bound to it.
func (c *Compressor) match(suffix []string) (compressToken, bool) {
	for _, e := range c.compress {
		if labelsEqual(e.suffix, suffix) {
			return e.token, true
		}
	}
	return compressToken{}, false
}

func labelsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// EncodeName writes name's wire representation to buf using c for
// back-reference compression. It walks labels left to right; at each
// prefix it asks c for a matching suffix token, emitting the token and
// stopping on a match, or one <len><label> pair otherwise. A label over
// maxLabelLen bytes is a CodecError.
func EncodeName(buf *bytes.Buffer, name DomainName, c *Compressor) error {
	if c == nil {
		c = NewCompressor()
	}
	for i := range name.Labels {
		if token, ok := c.match(name.Labels[i:]); ok {
			buf.Write(token[:])
			return nil
		}
		label := name.Labels[i]
		if len(label) > maxLabelLen {
			return &errors.CodecError{Operation: "encode name", Details: "label " + label + " too long", Kind: errors.KindLabelTooLong}
		}
		buf.WriteByte(byte(len(label)))
		buf.WriteString(label)
	}
	buf.WriteByte(0)
	return nil
}

// DecodeName reads a domain name from data starting at offset, using c
// for back-reference expansion, and returns the name plus the offset of
// the first byte after it.
func DecodeName(data []byte, offset int, c *Compressor) (DomainName, int, error) {
	if c == nil {
		c = NewCompressor()
	}
	var labels []string
	for {
		if offset >= len(data) {
			return DomainName{}, 0, &errors.CodecError{Operation: "decode name", Details: "truncated input", Kind: errors.KindTruncatedInput}
		}
		l := data[offset]
		offset++
		if l == 0 {
			break
		}
		if l == compressPrefix {
			if offset >= len(data) {
				return DomainName{}, 0, &errors.CodecError{Operation: "decode name", Details: "truncated input", Kind: errors.KindTruncatedInput}
			}
			token := compressToken{compressPrefix, data[offset]}
			offset++
			suffix, ok := c.decompress[token]
			if !ok {
				return DomainName{}, 0, &errors.CodecError{Operation: "decode name", Details: "malformed name: unknown back-reference", Kind: errors.KindMalformedName}
			}
			labels = append(labels, suffix...)
			break
		}
		if int(l) > maxLabelLen {
			return DomainName{}, 0, &errors.CodecError{Operation: "decode name", Details: "label too long", Kind: errors.KindLabelTooLong}
		}
		if offset+int(l) > len(data) {
			return DomainName{}, 0, &errors.CodecError{Operation: "decode name", Details: "truncated input", Kind: errors.KindTruncatedInput}
		}
		labels = append(labels, string(data[offset:offset+int(l)]))
		offset += int(l)
	}
	return DomainName{Labels: labels}, offset, nil
}
