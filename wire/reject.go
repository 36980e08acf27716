package wire

import (
	"fmt"
	"unicode/utf8"
)

const MaxRejectReasonBytes = 111

type Reject struct {
	Message Command
	Code    byte
	Reason  string
	Data    []byte
}

func EncodeReject(r Reject) ([]byte, error) {
	msg := string(r.Message)
	if msg == "" {
		return nil, fmt.Errorf("wire: reject: empty message")
	}
	if len(r.Reason) > MaxRejectReasonBytes {
		return nil, fmt.Errorf("wire: reject: reason too long")
	}
	if !utf8.ValidString(r.Reason) {
		return nil, fmt.Errorf("wire: reject: reason must be UTF-8")
	}
	out := make([]byte, 0, 9+len(msg)+1+9+len(r.Reason)+len(r.Data))
	out = append(out, EncodeCompactSize(uint64(len(msg)))...)
	out = append(out, []byte(msg)...)
	out = append(out, r.Code)
	out = append(out, EncodeCompactSize(uint64(len(r.Reason)))...)
	out = append(out, []byte(r.Reason)...)
	out = append(out, r.Data...)
	return out, nil
}

func DecodeReject(b []byte) (*Reject, error) {
	off := 0
	msgLen, used, err := DecodeCompactSize(b)
	if err != nil {
		return nil, err
	}
	off += used
	if len(b) < off+int(msgLen)+1 {
		return nil, fmt.Errorf("wire: reject: truncated message")
	}
	msg := Command(b[off : off+int(msgLen)])
	off += int(msgLen)
	code := b[off]
	off++
	reasonLen, used, err := DecodeCompactSize(b[off:])
	if err != nil {
		return nil, err
	}
	off += used
	if reasonLen > MaxRejectReasonBytes {
		return nil, fmt.Errorf("wire: reject: reason too long")
	}
	if len(b) < off+int(reasonLen) {
		return nil, fmt.Errorf("wire: reject: truncated reason")
	}
	reason := b[off : off+int(reasonLen)]
	off += int(reasonLen)
	if !utf8.Valid(reason) {
		return nil, fmt.Errorf("wire: reject: reason must be UTF-8")
	}
	data := append([]byte(nil), b[off:]...)
	return &Reject{Message: msg, Code: code, Reason: string(reason), Data: data}, nil
}
