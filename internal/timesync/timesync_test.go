package timesync

import "testing"

func TestFirstResponseIsApplied(t *testing.T) {
	ts := New()
	var got uint32
	ts.HandleTimeResponse(1234, 0, func(e uint32) { got = e })
	if got != 1234 {
		t.Fatalf("expected 1234, got %d", got)
	}
}

func TestDuplicateResponseIsDropped(t *testing.T) {
	ts := New()
	calls := 0
	apply := func(uint32) { calls++ }
	ts.HandleTimeResponse(1, 0, apply)
	ts.HandleTimeResponse(2, 0, apply)
	if calls != 1 {
		t.Fatalf("expected exactly one applied response, got %d", calls)
	}
}

func TestResetAllowsAnotherResponse(t *testing.T) {
	ts := New()
	calls := 0
	apply := func(uint32) { calls++ }
	ts.HandleTimeResponse(1, 0, apply)
	ts.Reset()
	ts.HandleTimeResponse(2, 0, apply)
	if calls != 2 {
		t.Fatalf("expected two applied responses across resets, got %d", calls)
	}
}
