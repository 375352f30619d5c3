// Package crcplatform implements channel.Platform using the same
// CRC16/MODBUS table the wire codec's teacher package was grounded on,
// plus a crypto/rand token source.
package crcplatform

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/sigurn/crc16"
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Platform is a channel.Platform backed by wall time, CRC16/MODBUS,
// and a crypto/rand token source. OTA and firmware-transfer state are
// held in memory only; a real device would back these with flash.
type Platform struct {
	mu sync.Mutex

	epochOffset  int64 // seconds added to wall time by the last SetTime
	otaSucceeded bool

	firmwareSize int64
	firmwareBuf  []byte
	firmwareOK   bool
}

// New returns a Platform whose WasOTAUpgradeSuccessful reports
// otaSucceeded (the outcome of whatever OTA attempt preceded process
// start, in a real device persisted across reboots).
func New(otaSucceeded bool) *Platform {
	return &Platform{otaSucceeded: otaSucceeded}
}

func (p *Platform) Millis() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Now().UnixMilli() + p.epochOffset*1000
}

func (p *Platform) SetTime(epoch uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epochOffset = int64(epoch) - time.Now().Unix()
}

// CalculateCRC computes CRC16/MODBUS over buf, widened to uint32 the
// way the wire codec's describe-cache CRCs are carried.
func (p *Platform) CalculateCRC(buf []byte) uint32 {
	return uint32(crc16.Checksum(buf, modbusTable))
}

func (p *Platform) Signal(on bool, group byte, reserved byte) {}

func (p *Platform) WasOTAUpgradeSuccessful() bool {
	return p.otaSucceeded
}

// NextToken draws a nonzero 32-bit token from crypto/rand, falling
// back to 0 (which Engine.Init treats as "seed from math/rand
// instead") only if the read genuinely fails.
func (p *Platform) NextToken() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	v := binary.BigEndian.Uint32(b[:])
	if v == 0 {
		v = 1
	}
	return v
}

func (p *Platform) PrepareFirmwareUpdate(size uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.firmwareSize = int64(size)
	p.firmwareBuf = make([]byte, 0, size)
	p.firmwareOK = false
	return nil
}

func (p *Platform) SaveFirmwareChunk(offset uint32, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	needed := int64(offset) + int64(len(data))
	if needed > int64(cap(p.firmwareBuf)) {
		grown := make([]byte, needed)
		copy(grown, p.firmwareBuf)
		p.firmwareBuf = grown
	}
	if int64(len(p.firmwareBuf)) < needed {
		p.firmwareBuf = p.firmwareBuf[:needed]
	}
	copy(p.firmwareBuf[offset:], data)
	return nil
}

func (p *Platform) FinishFirmwareUpdate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.firmwareOK = true
	return nil
}

func (p *Platform) CancelFirmwareUpdate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.firmwareBuf = nil
	p.firmwareOK = false
}
