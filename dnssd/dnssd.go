// Package dnssd is the public surface over the ANQP-tunneled DNS-SD
// codec: building PTR/TXT service advertisements and ANQP queries, and
// rendering them as the hex-ASCII arguments wpa_supplicant's
// P2P_SERVICE_ADD and P2P_SERV_DISC_REQ commands expect.
//
// The binary-exact wire layout lives in internal/wire; this package
// only adds the P2P-command-string conventions on top of it.
package dnssd

import (
	"bytes"

	"github.com/columbia-irt/spinet-go/internal/wire"
)

// RecordType re-exports the wire package's record type enum.
type RecordType = wire.RecordType

const (
	RecordTypePTR = wire.RecordTypePTR
	RecordTypeTXT = wire.RecordTypeTXT
)

// ResponseCode re-exports the wire package's ANQP response status codes.
type ResponseCode = wire.ResponseCode

const (
	ResponseSuccess          = wire.ResponseSuccess
	ResponseProtoUnavailable = wire.ResponseProtoUnavailable
	ResponseInfoUnavailable  = wire.ResponseInfoUnavailable
	ResponseBadRequest       = wire.ResponseBadRequest
)

// DomainName re-exports the wire package's domain name type.
type DomainName = wire.DomainName

// NewDomainName splits a dotted string into a DomainName.
func NewDomainName(s string) DomainName { return wire.NewDomainName(s) }

// ANQPResponse re-exports the wire package's decoded response envelope.
type ANQPResponse = wire.ANQPResponse

// ParseResponse decodes a hex-encoded ANQP response, as delivered in
// the tlv field of a P2P-SERV-DISC-RESP event.
func ParseResponse(hexTLV string) (ANQPResponse, error) {
	raw, err := wire.FromHex(hexTLV)
	if err != nil {
		return ANQPResponse{}, err
	}
	return wire.DecodeANQPResponse(raw)
}

// BuildPTRQuery builds the hex ANQP query for a PTR lookup of
// serviceType (e.g. "_spinet._tcp.local."), suitable for
// P2P_SERV_DISC_REQ.
func BuildPTRQuery(serviceType string) (string, error) {
	d := wire.ANQPData{Name: wire.NewDomainName(serviceType), Type: wire.RecordTypePTR}
	q := wire.NewANQPQuery(d)
	raw, err := q.Encode(wire.NewCompressor())
	if err != nil {
		return "", err
	}
	return wire.ToHex(raw), nil
}

// BuildPTRAdvertisement builds the two hex arguments for a
// "bonjour <anqpdata-hex> <rdata-hex>" P2P_SERVICE_ADD command that
// advertises instanceName (e.g. "host._spinet._tcp.local.") as a PTR
// record. serviceType is the owning service type, inferred as
// instanceName's suffix after its first label if not given explicitly.
func BuildPTRAdvertisement(instanceName, serviceType string) (anqpDataHex, rdataHex string, err error) {
	typeName := wire.NewDomainName(serviceType)
	if serviceType == "" {
		if instance := wire.NewDomainName(instanceName); len(instance.Labels) > 1 {
			typeName = wire.DomainName{Labels: instance.Labels[1:]}
		}
	}
	d := wire.ANQPData{Name: typeName, Type: wire.RecordTypePTR}

	var dataBuf bytes.Buffer
	if err = d.Encode(&dataBuf, wire.NewCompressor()); err != nil {
		return "", "", err
	}

	c := wire.NewCompressorForName(typeName)
	rdata := wire.PTRData{Name: wire.NewDomainName(instanceName)}
	var rdataBuf bytes.Buffer
	if err = rdata.Encode(&rdataBuf, c); err != nil {
		return "", "", err
	}

	return wire.ToHex(dataBuf.Bytes()), wire.ToHex(rdataBuf.Bytes()), nil
}

// BuildTXTAdvertisement builds the two hex arguments for a
// "bonjour <anqpdata-hex> <rdata-hex>" P2P_SERVICE_ADD command that
// attaches attrs as TXT metadata to instanceName.
func BuildTXTAdvertisement(instanceName string, attrs []KV) (anqpDataHex, rdataHex string, err error) {
	name := wire.NewDomainName(instanceName)
	d := wire.ANQPData{Name: name, Type: wire.RecordTypeTXT}

	var dataBuf bytes.Buffer
	if err = d.Encode(&dataBuf, wire.NewCompressor()); err != nil {
		return "", "", err
	}

	txt := wire.NewTXTData()
	for _, kv := range attrs {
		txt.Set(kv.Key, kv.Value)
	}
	var rdataBuf bytes.Buffer
	if err = txt.Encode(&rdataBuf); err != nil {
		return "", "", err
	}

	return wire.ToHex(dataBuf.Bytes()), wire.ToHex(rdataBuf.Bytes()), nil
}

// BonjourServiceAddArgs renders the literal "bonjour <anqpdata-hex>
// <rdata-hex>" string P2P_SERVICE_ADD expects.
func BonjourServiceAddArgs(anqpDataHex, rdataHex string) string {
	return "bonjour " + anqpDataHex + " " + rdataHex
}

// KV is an ordered TXT key/value pair; order in the slice is preserved
// on the wire.
type KV struct {
	Key   string
	Value string
}
