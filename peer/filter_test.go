package peer

import (
	"testing"

	"go.nodewire.dev/peer/bloom"
	"go.nodewire.dev/peer/wire"
)

func TestHandleFilterLoadInstallsFilterAndForcesRelay(t *testing.T) {
	s, _ := newSendTestSession()
	s.relay = false

	payload, err := wire.EncodeFilterLoad(wire.FilterLoad{Data: make([]byte, 8), HashFuncs: 3, Tweak: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.handleFilterLoad(payload); err != nil {
		t.Fatal(err)
	}
	if s.spvFilter == nil {
		t.Fatal("expected spvFilter to be installed")
	}
	if !s.relay {
		t.Fatal("expected filterload to force relay on")
	}
}

func TestHandleFilterLoadRejectsOversizeFilter(t *testing.T) {
	s, _ := newSendTestSession()
	payload, err := wire.EncodeFilterLoad(wire.FilterLoad{Data: make([]byte, 8), HashFuncs: wire.MaxFilterHashFuncs + 1, Tweak: 1})
	if err != nil {
		t.Fatal(err)
	}
	err = s.handleFilterLoad(payload)
	perr, ok := err.(*Error)
	if !ok || perr.BanScore == 0 {
		t.Fatalf("expected a ban-scored protocol error, got %v", err)
	}
	if s.spvFilter != nil {
		t.Fatal("expected no filter installed on rejection")
	}
}

func TestHandleFilterAddIsNoopWithoutInstalledFilter(t *testing.T) {
	s, _ := newSendTestSession()
	payload, err := wire.EncodeFilterAdd([]byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.handleFilterAdd(payload); err != nil {
		t.Fatal(err)
	}
}

func TestHandleFilterClearDropsFilterAndForcesRelay(t *testing.T) {
	s, _ := newSendTestSession()
	s.relay = false
	f, err := bloom.NewFilter(8, 0.001, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.spvFilter = f

	if err := s.handleFilterClear(); err != nil {
		t.Fatal(err)
	}
	if s.spvFilter != nil {
		t.Fatal("expected filter to be cleared")
	}
	if !s.relay {
		t.Fatal("expected filterclear to force relay on")
	}
}

func TestHandleFeeFilterRecordsRateAndEmits(t *testing.T) {
	s, _ := newSendTestSession()
	sub := &recordingSubscriber{}
	s.events = eventSink{sessionID: 1, subscriber: sub}

	payload := wire.EncodeFeeFilter(wire.FeeFilter{FeeRate: 1000})
	if err := s.handleFeeFilter(payload); err != nil {
		t.Fatal(err)
	}
	if s.feeRate != 1000 {
		t.Fatalf("expected feeRate 1000, got %d", s.feeRate)
	}
	if len(sub.events) != 1 || sub.events[0].Kind != EventFeeFilter {
		t.Fatalf("expected one EventFeeFilter, got %v", sub.events)
	}
}

func TestHandleSendCmpctRecordsAnnounceMode(t *testing.T) {
	s, _ := newSendTestSession()
	payload := wire.EncodeSendCmpct(wire.SendCmpct{Announce: 1, Version: 1})
	if err := s.handleSendCmpct(payload); err != nil {
		t.Fatal(err)
	}
	if s.compactMode != 1 {
		t.Fatalf("expected compactMode 1, got %d", s.compactMode)
	}
}

func TestHandleSendCmpctEnablesModeZero(t *testing.T) {
	s, _ := newSendTestSession()
	payload := wire.EncodeSendCmpct(wire.SendCmpct{Announce: 0, Version: 1})
	if err := s.handleSendCmpct(payload); err != nil {
		t.Fatal(err)
	}
	if s.compactMode != 1 {
		t.Fatalf("expected mode-0 sendcmpct (Announce=0) to still enable compact mode, got %d", s.compactMode)
	}
}
