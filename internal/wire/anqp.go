package wire

import (
	"bytes"
	"sync/atomic"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// anqpProto is the constant protocol byte required in every ANQP
// query/response frame.
const anqpProto = 1

// ResponseCode is the ANQPResponse status byte. Only SUCCESS carries an
// ANQPData descriptor and rdata; the other codes leave both absent even
// if trailing bytes are present in the buffer.
type ResponseCode uint8

const (
	ResponseSuccess          ResponseCode = 0
	ResponseProtoUnavailable ResponseCode = 1
	ResponseInfoUnavailable  ResponseCode = 2
	ResponseBadRequest       ResponseCode = 3
)

// tidCounter is the process-wide 8-bit wrapping transaction-id source
// used when a caller does not supply one explicitly. It is the caller's
// responsibility to keep the number of outstanding queries under 256;
// collision beyond that window is documented, not guarded against.
var tidCounter uint32 = 1

// NextTID returns the next transaction id from the shared wrapping
// counter, mod 256.
func NextTID() uint8 {
	v := atomic.AddUint32(&tidCounter, 1)
	return uint8((v - 1) % 256)
}

// ANQPQuery is an outgoing ANQP-tunneled DNS-SD query: the proto/tid
// envelope around an ANQPData service-type descriptor.
//
// Wire format: <length:u16 LE><proto:u8=1><tid:u8><ANQPData>.
type ANQPQuery struct {
	Data ANQPData
	TID  uint8
}

// NewANQPQuery builds a query for data, assigning the next wrapping TID.
func NewANQPQuery(data ANQPData) ANQPQuery {
	return ANQPQuery{Data: data, TID: NextTID()}
}

// Encode renders q to its wire form. The compressor should normally be
// a fresh NewCompressor(); PTR rdata (encoded separately) is what binds
// the dynamic slot.
func (q ANQPQuery) Encode(c *Compressor) ([]byte, error) {
	var body bytes.Buffer
	if err := q.Data.Encode(&body, c); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	length := 2 + body.Len()
	writeU16LE(&out, uint16(length))
	out.WriteByte(anqpProto)
	out.WriteByte(q.TID)
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// DecodeANQPQuery parses a full ANQPQuery frame.
func DecodeANQPQuery(data []byte) (ANQPQuery, error) {
	if len(data) < 4 {
		return ANQPQuery{}, &errors.CodecError{Operation: "decode ANQPQuery", Details: "truncated input", Kind: errors.KindTruncatedInput}
	}
	proto := data[2]
	tid := data[3]
	if proto != anqpProto {
		return ANQPQuery{}, &errors.CodecError{Operation: "decode ANQPQuery", Details: "unsupported protocol", Kind: errors.KindUnsupportedProtocol}
	}
	d, _, err := DecodeANQPData(data, 4, nil)
	if err != nil {
		return ANQPQuery{}, err
	}
	return ANQPQuery{Data: d, TID: tid}, nil
}

// ANQPResponse is an incoming ANQP-tunneled DNS-SD response: a status
// code plus, only on ResponseSuccess, the ANQPData descriptor and its
// rdata (PTRData or *TXTData per Data.Type).
//
// Wire format: <length:u16 LE><proto:u8=1><tid:u8><code:u8>[<ANQPData><rdata>].
type ANQPResponse struct {
	Data  *ANQPData
	Rdata interface{} // PTRData or *TXTData, nil unless Code == ResponseSuccess
	TID   uint8
	Code  ResponseCode
}

// Encode renders r to its wire form. For PTR rdata, c should bind the
// dynamic slot to r.Data.Name (see NewCompressorForName); TXT rdata
// needs no compressor.
func (r ANQPResponse) Encode(c *Compressor) ([]byte, error) {
	var body bytes.Buffer
	if r.Code == ResponseSuccess && r.Data != nil {
		if err := r.Data.Encode(&body, NewCompressor()); err != nil {
			return nil, err
		}
		switch rd := r.Rdata.(type) {
		case PTRData:
			if err := rd.Encode(&body, c); err != nil {
				return nil, err
			}
		case *TXTData:
			if err := rd.Encode(&body); err != nil {
				return nil, err
			}
		case nil:
		default:
			return nil, &errors.CodecError{Operation: "encode ANQPResponse", Details: "unknown rdata type", Kind: errors.KindUnknownType}
		}
	}

	var out bytes.Buffer
	length := 3 + body.Len()
	writeU16LE(&out, uint16(length))
	out.WriteByte(anqpProto)
	out.WriteByte(r.TID)
	out.WriteByte(byte(r.Code))
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// DecodeANQPResponse parses a full ANQPResponse frame. Given a
// non-SUCCESS code, Data and Rdata are left nil even if bytes follow.
func DecodeANQPResponse(data []byte) (ANQPResponse, error) {
	if len(data) < 5 {
		return ANQPResponse{}, &errors.CodecError{Operation: "decode ANQPResponse", Details: "truncated input", Kind: errors.KindTruncatedInput}
	}
	proto := data[2]
	tid := data[3]
	code := ResponseCode(data[4])
	if proto != anqpProto {
		return ANQPResponse{}, &errors.CodecError{Operation: "decode ANQPResponse", Details: "unsupported protocol", Kind: errors.KindUnsupportedProtocol}
	}

	r := ANQPResponse{TID: tid, Code: code}
	if code != ResponseSuccess {
		return r, nil
	}

	d, offset, err := DecodeANQPData(data, 5, nil)
	if err != nil {
		return ANQPResponse{}, err
	}
	r.Data = &d

	switch d.Type {
	case RecordTypePTR:
		c := NewCompressorForName(d.Name)
		rdata, _, err := DecodePTRData(data, offset, c)
		if err != nil {
			return ANQPResponse{}, err
		}
		r.Rdata = rdata
	case RecordTypeTXT:
		rdata, _, err := DecodeTXTData(data, offset)
		if err != nil {
			return ANQPResponse{}, err
		}
		r.Rdata = rdata
	default:
		return ANQPResponse{}, &errors.CodecError{Operation: "decode ANQPResponse", Details: "unknown ANQP type", Kind: errors.KindUnknownType}
	}
	return r, nil
}
