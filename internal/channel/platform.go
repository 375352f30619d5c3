package channel

import "github.com/nhirsama/deviceproto/internal/describe"

// Selector names which composite CRC AppStateSelectorInfo is being
// asked to compute or persist.
type Selector int

const (
	SelectorSystemDescribe Selector = iota
	SelectorAppDescribe
	SelectorSubscriptions
	SelectorProtocolFlags
)

// SelectorOp is the operation AppStateSelectorInfo performs for a
// given selector.
type SelectorOp int

const (
	OpCompute SelectorOp = iota
	OpPersist
	OpComputeAndPersist
)

// DescriptorCallbacks is the descriptor callback surface: CRC
// computation/persistence for describe-cache coherence, plus the
// function/variable/event dispatch surface the upper handlers use.
type DescriptorCallbacks interface {
	// AppStateSelectorInfo computes and/or persists the CRC named by
	// selector, per op. value/extra carry op-specific parameters (e.g.
	// a freshly-received CRC to persist); unused by OpCompute.
	AppStateSelectorInfo(selector Selector, op SelectorOp, value uint32, extra []byte) (crc uint32, err error)

	CallFunction(token []byte, name string, args []byte) (result []byte, err error)
	ReadVariable(token []byte, name string) (value []byte, err error)
	CallEventHandler(name string, data []byte) error

	// DescribeCallbacks exposes the function/variable/system-info/
	// metrics surface the describe builder pulls content from.
	DescribeCallbacks() describe.Callbacks
}

// Platform is the callback surface for time, RNG, CRC, signaling, and
// the firmware sink — everything the spec calls "injected via a
// callback surface" rather than owned by the engine.
type Platform interface {
	Millis() int64
	SetTime(epoch uint32)
	CalculateCRC(buf []byte) uint32
	Signal(on bool, group byte, reserved byte)
	WasOTAUpgradeSuccessful() bool
	NextToken() uint32

	PrepareFirmwareUpdate(size uint32) error
	SaveFirmwareChunk(offset uint32, data []byte) error
	FinishFirmwareUpdate() error
	CancelFirmwareUpdate()
}

// Pinger is notified of message activity and, when idle, decides
// whether to emit a keepalive ping.
type Pinger interface {
	NotifyMessageActivity(millis int64)
	Reset()
	Idle(millis int64) bool
}

// TimeSync hands a decoded time-response epoch to the platform clock.
type TimeSync interface {
	Reset()
	HandleTimeResponse(epoch uint32, millis int64, setTime func(uint32))
}

// FirmwareTransfer is the chunked OTA engine's contract; the dispatch
// engine only ever routes messages to it and cancels it on error.
type FirmwareTransfer interface {
	Reset()
	Idle(millis int64)
	Cancel()
	HandleSaveBegin(msg []byte) error
	HandleUpdateBegin(msg []byte) error
	HandleChunk(msg []byte) error
	HandleUpdateDone(msg []byte) error
}

// SubscriptionEngine handles inbound EVENT messages.
type SubscriptionEngine interface {
	HandleEvent(msg []byte) error
}
