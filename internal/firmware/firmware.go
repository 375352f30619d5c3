// Package firmware implements channel.FirmwareTransfer, the chunked
// OTA sink referenced by the dispatch engine's contract. It decodes
// the minimal wire shape (offset/size headers) and hands bytes to a
// platform firmware sink; it does not itself validate signatures or
// apply the image, matching the "referenced by contract" scope of the
// chunked-transfer engine.
package firmware

import "encoding/binary"

// Sink is the subset of channel.Platform this package writes chunks
// through.
type Sink interface {
	PrepareFirmwareUpdate(size uint32) error
	SaveFirmwareChunk(offset uint32, data []byte) error
	FinishFirmwareUpdate() error
	CancelFirmwareUpdate()
}

// Transfer tracks whether an update is in progress.
type Transfer struct {
	sink   Sink
	active bool
}

// New returns a Transfer writing accepted chunks through sink.
func New(sink Sink) *Transfer {
	return &Transfer{sink: sink}
}

func (t *Transfer) Reset() {
	if t.active {
		t.sink.CancelFirmwareUpdate()
	}
	t.active = false
}

func (t *Transfer) Idle(millis int64) {}

func (t *Transfer) Cancel() {
	if t.active {
		t.sink.CancelFirmwareUpdate()
	}
	t.active = false
}

// HandleSaveBegin decodes a 4-byte big-endian size from the message
// payload and prepares the sink.
func (t *Transfer) HandleSaveBegin(msg []byte) error {
	if len(msg) < 4 {
		return nil
	}
	size := binary.BigEndian.Uint32(msg[len(msg)-4:])
	if err := t.sink.PrepareFirmwareUpdate(size); err != nil {
		return err
	}
	t.active = true
	return nil
}

// HandleUpdateBegin behaves like HandleSaveBegin for this protocol's
// single-slot firmware model — there is no separate "begin update on
// existing slot" step.
func (t *Transfer) HandleUpdateBegin(msg []byte) error {
	return t.HandleSaveBegin(msg)
}

// HandleChunk decodes a 4-byte big-endian offset prefix followed by
// chunk data and forwards it to the sink.
func (t *Transfer) HandleChunk(msg []byte) error {
	if !t.active || len(msg) < 4 {
		return nil
	}
	offset := binary.BigEndian.Uint32(msg[:4])
	return t.sink.SaveFirmwareChunk(offset, msg[4:])
}

func (t *Transfer) HandleUpdateDone(msg []byte) error {
	if !t.active {
		return nil
	}
	t.active = false
	return t.sink.FinishFirmwareUpdate()
}
