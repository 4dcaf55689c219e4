package wire

import (
	"bytes"
	"testing"
)

func TestTXTData_RoundTrip(t *testing.T) {
	txt := NewTXTData()
	txt.Set("uri", " https://[2001:db8::1]:10000/")
	txt.Set("version", "1")

	var buf bytes.Buffer
	if err := txt.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, _, err := DecodeTXTData(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equal(txt) {
		t.Errorf("round trip mismatch: got %v, want %v", got.values, txt.values)
	}
	if got.Keys()[0] != "uri" || got.Keys()[1] != "version" {
		t.Errorf("insertion order not preserved: %v", got.Keys())
	}
}

func TestTXTData_Empty(t *testing.T) {
	txt := NewTXTData()
	var buf bytes.Buffer
	if err := txt.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x00}) {
		t.Errorf("empty TXTData should encode to a single 0x00 byte, got % x", buf.Bytes())
	}
}

func TestTXTData_ReaderAcceptsTrailingZero(t *testing.T) {
	// len("a=b") == 3
	data := []byte{3, 'a', '=', 'b', 0x00}
	got, offset, err := DecodeTXTData(data, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if offset != len(data) {
		t.Errorf("offset = %d, want %d", offset, len(data))
	}
	if v, ok := got.Get("a"); !ok || v != "b" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}
}

func TestANQPData_RoundTrip(t *testing.T) {
	d := ANQPData{Name: NewDomainName("_spinet._tcp.local."), Type: RecordTypePTR}
	var buf bytes.Buffer
	if err := d.Encode(&buf, NewCompressor()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := DecodeANQPData(buf.Bytes(), 0, NewCompressor())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Name.Equal(d.Name) || got.Type != d.Type {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

func TestANQPData_UnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	d := ANQPData{Name: NewDomainName("local."), Type: RecordTypePTR}
	if err := d.Encode(&buf, NewCompressor()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] = 2 // corrupt version byte

	_, _, err := DecodeANQPData(raw, 0, NewCompressor())
	if err == nil {
		t.Fatal("expected error for bad version byte")
	}
}

func TestPTRData_EncodeWithBoundCompressor(t *testing.T) {
	ref := NewDomainName("_spinet._tcp.local.")
	c := NewCompressorForName(ref)
	p := PTRData{Name: NewDomainName("host._spinet._tcp.local.")}

	var buf bytes.Buffer
	if err := p.Encode(&buf, c); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := DecodePTRData(buf.Bytes(), 0, c)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Name.Equal(p.Name) {
		t.Errorf("round trip mismatch: got %v, want %v", got.Name, p.Name)
	}
}
