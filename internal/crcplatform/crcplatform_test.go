package crcplatform

import "testing"

func TestCalculateCRCMatchesKnownModbusVector(t *testing.T) {
	p := New(false)
	// "123456789" is the standard CRC16/MODBUS check-value input; the
	// known-good result is 0x4B37.
	got := p.CalculateCRC([]byte("123456789"))
	if got != 0x4B37 {
		t.Fatalf("expected 0x4B37, got 0x%X", got)
	}
}

func TestNextTokenNeverReturnsZero(t *testing.T) {
	p := New(false)
	for i := 0; i < 100; i++ {
		if p.NextToken() == 0 {
			t.Fatal("NextToken returned 0")
		}
	}
}

func TestFirmwareChunksAssembleInOrder(t *testing.T) {
	p := New(false)
	if err := p.PrepareFirmwareUpdate(6); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if err := p.SaveFirmwareChunk(3, []byte{4, 5, 6}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := p.SaveFirmwareChunk(0, []byte{1, 2, 3}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := p.FinishFirmwareUpdate(); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	for i, b := range want {
		if p.firmwareBuf[i] != b {
			t.Fatalf("byte %d: got %d want %d", i, p.firmwareBuf[i], b)
		}
	}
}

func TestWasOTAUpgradeSuccessfulReportsConstructorValue(t *testing.T) {
	p := New(true)
	if !p.WasOTAUpgradeSuccessful() {
		t.Fatal("expected true")
	}
}
