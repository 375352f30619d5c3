// Package engine implements the dispatch loop and session orchestrator
// described by the spec's Dispatch engine and Session orchestrator
// components. They share a single aggregate state struct (the spec's
// replacement strategy for "session state shared across handshake,
// event loop, and handlers": one struct owned by the engine, passed by
// mutable receiver into handlers, no global mutable state) so the two
// live in one package rather than behind an artificial interface
// boundary, the way device_manager_impl.go keeps a device's identity,
// heartbeat, and queue state together under one receiver.
package engine

import (
	"math/rand"

	"github.com/nhirsama/deviceproto/internal/ackreg"
	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/rs/zerolog"
)

// InvalidMessageHandle marks a pending-describe-id field as "no
// outstanding request of this kind".
const InvalidMessageHandle uint16 = 0xFFFF

// ProtocolFlags is the negotiated/configured capability bitfield.
type ProtocolFlags uint32

const (
	RequireHelloResponse ProtocolFlags = 1 << iota
	DeviceInitiatedDescribe
)

// HelloFlags is the byte bitfield carried in the HELLO payload.
type HelloFlags byte

const (
	OTAUpgradeSuccessful    HelloFlags = 0x01
	DiagnosticsSupport      HelloFlags = 0x02
	ImmediateUpdatesSupport HelloFlags = 0x04
	// bits 0x08 and 0x10 reserved.
	HelloDeviceInitiatedDescribe HelloFlags = 0x20
)

// HelloWaitMs bounds how long Begin waits for a HELLO reply from the
// cloud when RequireHelloResponse is set.
const HelloWaitMs = 4000

// Identity carries the fixed HELLO payload fields for this device.
type Identity struct {
	ProductID       uint16
	FirmwareVersion uint16
	PlatformID      uint16
	DeviceID        []byte
}

// Engine owns the process-wide session state plus every collaborator
// the spec calls out: the channel, platform, descriptor callbacks, and
// the upper handlers dispatch routes into.
type Engine struct {
	Channel     channel.Channel
	Platform    channel.Platform
	Descriptor  channel.DescriptorCallbacks
	Pinger      channel.Pinger
	TimeSync    channel.TimeSync
	Firmware    channel.FirmwareTransfer
	Subs        channel.SubscriptionEngine
	AckReg      *ackreg.Registry
	Identity    Identity
	Log         zerolog.Logger

	initialized       bool
	nextToken         uint32
	protocolFlags     ProtocolFlags
	lastMessageMillis int64

	appDescribeMsgID    uint16
	systemDescribeMsgID uint16
	subscriptionsMsgID  uint16
}

// New constructs an Engine with fresh, uninitialized session state.
func New(ch channel.Channel, pf channel.Platform, dc channel.DescriptorCallbacks,
	pinger channel.Pinger, ts channel.TimeSync, fw channel.FirmwareTransfer,
	subs channel.SubscriptionEngine, identity Identity, log zerolog.Logger) *Engine {
	return &Engine{
		Channel:             ch,
		Platform:            pf,
		Descriptor:          dc,
		Pinger:              pinger,
		TimeSync:            ts,
		Firmware:            fw,
		Subs:                subs,
		AckReg:              ackreg.New(),
		Identity:            identity,
		Log:                 log,
		appDescribeMsgID:    InvalidMessageHandle,
		systemDescribeMsgID: InvalidMessageHandle,
		subscriptionsMsgID:  InvalidMessageHandle,
	}
}

// Init seeds the token counter from the platform RNG and marks the
// engine initialized. Calling it more than once is a no-op, matching
// the "set once after init" invariant.
func (e *Engine) Init() {
	if e.initialized {
		return
	}
	e.nextToken = e.Platform.NextToken()
	if e.nextToken == 0 {
		e.nextToken = rand.Uint32() | 1
	}
	e.initialized = true
}

// GetNextToken returns the next 32-bit outbound token and advances the
// counter, wrapping per normal unsigned overflow (tokens don't repeat
// within the practical lifetime of a session — see property 5).
func (e *Engine) GetNextToken() uint32 {
	t := e.nextToken
	e.nextToken++
	return t
}

// SetProtocolFlags overwrites the negotiated/configured capability set.
func (e *Engine) SetProtocolFlags(f ProtocolFlags) { e.protocolFlags = f }
func (e *Engine) ProtocolFlags() ProtocolFlags     { return e.protocolFlags }

func (e *Engine) touchActivity() {
	now := e.Platform.Millis()
	e.lastMessageMillis = now
	e.Pinger.NotifyMessageActivity(now)
}

func (e *Engine) resetPendingDescribeIDs() {
	e.appDescribeMsgID = InvalidMessageHandle
	e.systemDescribeMsgID = InvalidMessageHandle
	e.subscriptionsMsgID = InvalidMessageHandle
}
