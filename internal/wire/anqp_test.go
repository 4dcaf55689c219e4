package wire

import (
	"testing"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

func TestANQPQuery_RoundTrip(t *testing.T) {
	d := ANQPData{Name: NewDomainName("_spinet._tcp.local."), Type: RecordTypePTR}
	q := NewANQPQuery(d)

	raw, err := q.Encode(NewCompressor())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeANQPQuery(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.TID != q.TID || !got.Data.Name.Equal(q.Data.Name) || got.Data.Type != q.Data.Type {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, q)
	}
}

func TestANQPResponse_RoundTrip_PTR(t *testing.T) {
	name := NewDomainName("_spinet._tcp.local.")
	ptr := PTRData{Name: NewDomainName("host._spinet._tcp.local.")}
	r := ANQPResponse{
		Code:  ResponseSuccess,
		Data:  &ANQPData{Name: name, Type: RecordTypePTR},
		Rdata: ptr,
		TID:   7,
	}

	c := NewCompressorForName(name)
	raw, err := r.Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeANQPResponse(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Code != r.Code || got.TID != r.TID {
		t.Fatalf("envelope mismatch: got %+v", got)
	}
	gotPTR, ok := got.Rdata.(PTRData)
	if !ok || !gotPTR.Name.Equal(ptr.Name) {
		t.Errorf("rdata mismatch: got %+v, want %+v", got.Rdata, ptr)
	}
}

func TestANQPResponse_RoundTrip_TXT(t *testing.T) {
	name := NewDomainName("host._spinet._tcp.local.")
	txt := NewTXTData()
	txt.Set("uri", " https://[2001:db8::1]:10000/")
	r := ANQPResponse{
		Code:  ResponseSuccess,
		Data:  &ANQPData{Name: name, Type: RecordTypeTXT},
		Rdata: txt,
		TID:   3,
	}

	raw, err := r.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeANQPResponse(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gotTXT, ok := got.Rdata.(*TXTData)
	if !ok || !gotTXT.Equal(txt) {
		t.Errorf("rdata mismatch: got %+v, want %+v", got.Rdata, txt)
	}
}

func TestANQPResponse_NonSuccess_FixedLength(t *testing.T) {
	r := ANQPResponse{Code: ResponseInfoUnavailable, TID: 5}
	raw, err := r.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(raw) != 5 {
		t.Fatalf("expected 5-byte frame, got %d: % x", len(raw), raw)
	}
	if raw[0] != 3 || raw[1] != 0 {
		t.Errorf("expected length=3 LE, got % x", raw[:2])
	}

	got, err := DecodeANQPResponse(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Data != nil || got.Rdata != nil {
		t.Errorf("non-SUCCESS response must leave Data/Rdata nil, got %+v", got)
	}
}

func TestANQPQuery_UnsupportedProtocol(t *testing.T) {
	raw := []byte{0x04, 0x00, 0x02, 0x01}
	_, err := DecodeANQPQuery(raw)
	var codecErr *errors.CodecError
	if !asCodec(err, &codecErr) || codecErr.Kind != errors.KindUnsupportedProtocol {
		t.Fatalf("expected KindUnsupportedProtocol, got %v", err)
	}
}
