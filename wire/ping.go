package wire

import (
	"encoding/binary"
	"fmt"
)

type Ping struct{ Nonce uint64 }
type Pong struct{ Nonce uint64 }

func EncodePing(p Ping) []byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], p.Nonce)
	return out[:]
}

func DecodePing(b []byte) (*Ping, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("wire: ping: invalid payload length")
	}
	return &Ping{Nonce: binary.LittleEndian.Uint64(b)}, nil
}

func EncodePong(p Pong) []byte { return EncodePing(Ping{Nonce: p.Nonce}) }

func DecodePong(b []byte) (*Pong, error) {
	p, err := DecodePing(b)
	if err != nil {
		return nil, fmt.Errorf("wire: pong: %w", err)
	}
	return &Pong{Nonce: p.Nonce}, nil
}
