package wire

import "testing"

func TestRejectRoundTrip(t *testing.T) {
	r := Reject{
		Message: CmdTx,
		Code:    RejectDust,
		Reason:  "dust",
		Data:    []byte{1, 2, 3, 4},
	}
	enc, err := EncodeReject(r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeReject(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != r.Message || got.Code != r.Code || got.Reason != r.Reason || string(got.Data) != string(r.Data) {
		t.Fatalf("mismatch: %+v != %+v", *got, r)
	}
}

func TestRejectRejectsOversizeReason(t *testing.T) {
	r := Reject{Message: CmdTx, Code: RejectInvalid, Reason: string(make([]byte, MaxRejectReasonBytes+1))}
	if _, err := EncodeReject(r); err == nil {
		t.Fatal("expected error for oversize reason")
	}
}

func TestRejectRejectsEmptyMessage(t *testing.T) {
	if _, err := EncodeReject(Reject{Code: RejectInvalid}); err == nil {
		t.Fatal("expected error for empty message")
	}
}
