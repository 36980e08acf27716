package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const MaxUserAgentBytes = 256

type NetAddress struct {
	Services uint64
	IP       [16]byte
	Port     uint16
}

func encodeNetAddress(a NetAddress) []byte {
	out := make([]byte, 26)
	binary.LittleEndian.PutUint64(out[0:8], a.Services)
	copy(out[8:24], a.IP[:])
	binary.BigEndian.PutUint16(out[24:26], a.Port)
	return out
}

func decodeNetAddress(b []byte) (NetAddress, error) {
	if len(b) < 26 {
		return NetAddress{}, fmt.Errorf("wire: net_addr: truncated")
	}
	var a NetAddress
	a.Services = binary.LittleEndian.Uint64(b[0:8])
	copy(a.IP[:], b[8:24])
	a.Port = binary.BigEndian.Uint16(b[24:26])
	return a, nil
}

type VersionPayload struct {
	ProtocolVersion uint32
	Services        uint64
	Timestamp       int64
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	StartHeight     uint32
	Relay           bool
}

func EncodeVersion(v VersionPayload) ([]byte, error) {
	if len(v.UserAgent) > MaxUserAgentBytes {
		return nil, fmt.Errorf("wire: version: user_agent too long")
	}
	if !utf8.ValidString(v.UserAgent) {
		return nil, fmt.Errorf("wire: version: user_agent must be UTF-8")
	}
	out := make([]byte, 0, 4+8+8+26+26+8+9+len(v.UserAgent)+4+1)
	var tmp4 [4]byte
	var tmp8 [8]byte

	binary.LittleEndian.PutUint32(tmp4[:], v.ProtocolVersion)
	out = append(out, tmp4[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], v.Services)
	out = append(out, tmp8[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], uint64(v.Timestamp))
	out = append(out, tmp8[:]...)
	out = append(out, encodeNetAddress(v.AddrRecv)...)
	out = append(out, encodeNetAddress(v.AddrFrom)...)
	binary.LittleEndian.PutUint64(tmp8[:], v.Nonce)
	out = append(out, tmp8[:]...)
	out = append(out, EncodeCompactSize(uint64(len(v.UserAgent)))...)
	out = append(out, []byte(v.UserAgent)...)
	binary.LittleEndian.PutUint32(tmp4[:], v.StartHeight)
	out = append(out, tmp4[:]...)
	if v.Relay {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out, nil
}

func DecodeVersion(b []byte) (*VersionPayload, error) {
	const minLen = 4 + 8 + 8 + 26 + 26 + 8
	if len(b) < minLen {
		return nil, fmt.Errorf("wire: version: truncated")
	}
	off := 0
	proto := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	services := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	ts := int64(binary.LittleEndian.Uint64(b[off : off+8]))
	off += 8
	addrRecv, err := decodeNetAddress(b[off : off+26])
	if err != nil {
		return nil, err
	}
	off += 26
	addrFrom, err := decodeNetAddress(b[off : off+26])
	if err != nil {
		return nil, err
	}
	off += 26
	nonce := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	uaLen, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	if uaLen > MaxUserAgentBytes {
		return nil, fmt.Errorf("wire: version: user_agent too long")
	}
	if len(b) < off+int(uaLen) {
		return nil, fmt.Errorf("wire: version: truncated user_agent")
	}
	ua := b[off : off+int(uaLen)]
	off += int(uaLen)
	if !utf8.Valid(ua) {
		return nil, fmt.Errorf("wire: version: user_agent must be UTF-8")
	}

	v := &VersionPayload{
		ProtocolVersion: proto,
		Services:        services,
		Timestamp:       ts,
		AddrRecv:        addrRecv,
		AddrFrom:        addrFrom,
		Nonce:           nonce,
		UserAgent:       string(ua),
	}

	// StartHeight and Relay are optional trailing fields on very old peers.
	if len(b) >= off+4 {
		v.StartHeight = binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
	}
	if len(b) >= off+1 {
		v.Relay = b[off] != 0
		off++
	} else {
		v.Relay = true
	}
	if off != len(b) {
		return nil, fmt.Errorf("wire: version: trailing bytes")
	}
	return v, nil
}
