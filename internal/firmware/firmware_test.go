package firmware

import "testing"

type fakeSink struct {
	prepared  bool
	size      uint32
	chunks    map[uint32][]byte
	finished  bool
	cancelled bool
}

func newFakeSink() *fakeSink { return &fakeSink{chunks: make(map[uint32][]byte)} }

func (f *fakeSink) PrepareFirmwareUpdate(size uint32) error {
	f.prepared, f.size = true, size
	return nil
}
func (f *fakeSink) SaveFirmwareChunk(offset uint32, data []byte) error {
	f.chunks[offset] = append([]byte(nil), data...)
	return nil
}
func (f *fakeSink) FinishFirmwareUpdate() error { f.finished = true; return nil }
func (f *fakeSink) CancelFirmwareUpdate()       { f.cancelled = true }

func TestSaveBeginPreparesSink(t *testing.T) {
	sink := newFakeSink()
	tr := New(sink)

	msg := []byte{0, 0, 0, 42}
	if err := tr.HandleSaveBegin(msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sink.prepared || sink.size != 42 {
		t.Fatalf("sink not prepared correctly: %+v", sink)
	}
}

func TestChunkBeforeSaveBeginIsDropped(t *testing.T) {
	sink := newFakeSink()
	tr := New(sink)

	if err := tr.HandleChunk([]byte{0, 0, 0, 0, 1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.chunks) != 0 {
		t.Fatalf("expected no chunks written, got %v", sink.chunks)
	}
}

func TestUpdateDoneFinishesActiveTransfer(t *testing.T) {
	sink := newFakeSink()
	tr := New(sink)
	tr.HandleSaveBegin([]byte{0, 0, 0, 3})
	tr.HandleChunk([]byte{0, 0, 0, 0, 1, 2, 3})

	if err := tr.HandleUpdateDone(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sink.finished {
		t.Fatal("expected sink.finished true")
	}
	if string(sink.chunks[0]) != "\x01\x02\x03" {
		t.Fatalf("unexpected chunk contents: %v", sink.chunks[0])
	}
}

func TestCancelClearsActiveTransfer(t *testing.T) {
	sink := newFakeSink()
	tr := New(sink)
	tr.HandleSaveBegin([]byte{0, 0, 0, 3})
	tr.Cancel()

	if !sink.cancelled {
		t.Fatal("expected sink.cancelled true")
	}
	if err := tr.HandleUpdateDone(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.finished {
		t.Fatal("expected FinishFirmwareUpdate not called after cancel")
	}
}
