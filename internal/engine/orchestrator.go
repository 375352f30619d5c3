package engine

import (
	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/describe"
	"github.com/nhirsama/deviceproto/internal/descriptor"
	"github.com/nhirsama/deviceproto/internal/protoerr"
	"github.com/nhirsama/deviceproto/internal/wire"
)

// Begin runs the session handshake: reset transient state, establish
// the channel, and either take the resumed-session fast path or run a
// full HELLO exchange. A nil return means the session is live; a
// non-nil ErrSessionResumed means the fast path was taken and the
// caller should proceed straight to the event loop.
func (e *Engine) Begin() error {
	e.Pinger.Reset()
	e.TimeSync.Reset()
	e.Firmware.Reset()
	e.AckReg.Clear()
	e.resetPendingDescribeIDs()

	result, err := e.Channel.Establish()
	if err != nil {
		return err
	}

	if result == channel.SessionResumed {
		if err := e.Channel.SessionCommand(channel.MoveSession); err != nil {
			return err
		}

		current, err := e.AppStateDescriptor()
		if err != nil {
			return err
		}
		cached, haveCached := e.Channel.CachedAppStateDescriptor()

		mask := descriptor.All
		if e.protocolFlags&DeviceInitiatedDescribe != 0 {
			mask = descriptor.SystemDescribeCRC | descriptor.ProtocolFlags
		}

		if haveCached && cached.Equals(current, mask) {
			buf := make([]byte, wire.HeaderSize)
			n := wire.PingMessage(buf, uint16(e.GetNextToken()))
			if _, err := e.Channel.Send(wire.NewMessage(buf[:n])); err != nil {
				return err
			}
			return protoerr.ErrSessionResumed
		}
	}

	if err := e.sendHello(); err != nil {
		return err
	}

	if e.protocolFlags&RequireHelloResponse != 0 {
		if err := e.EventLoopUntil(wire.Hello, HelloWaitMs); err != nil {
			return protoerr.ErrHandshakeFailed
		}
	}

	e.Channel.NotifyEstablished()
	e.withPersistGuard(func() {
		e.Descriptor.AppStateSelectorInfo(channel.SelectorProtocolFlags, channel.OpPersist, uint32(e.protocolFlags), nil)
	})

	if e.protocolFlags&DeviceInitiatedDescribe != 0 {
		if err := e.PostDescription(describe.DescribeSystem, true); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) sendHello() error {
	var flags HelloFlags
	if e.Platform.WasOTAUpgradeSuccessful() {
		flags |= OTAUpgradeSuccessful
	}
	flags |= DiagnosticsSupport
	flags |= ImmediateUpdatesSupport
	if e.protocolFlags&DeviceInitiatedDescribe != 0 {
		flags |= HelloDeviceInitiatedDescribe
	}

	buf := make([]byte, wire.HeaderSize+64)
	token := e.GetNextToken()
	n := wire.HelloMessage(buf, uint16(token), e.Identity.ProductID, e.Identity.FirmwareVersion,
		e.Identity.PlatformID, e.Identity.DeviceID, byte(flags))
	_, err := e.Channel.Send(wire.NewMessage(buf[:n]))
	return err
}

// EventLoop runs a single step: age the ack registry by elapsedMs,
// receive at most one message and dispatch it, or run idle work if
// nothing arrived. Any dispatch error cancels the chunked-transfer
// engine before propagating.
func (e *Engine) EventLoop(elapsedMs int64) (wire.MessageType, error) {
	e.AckReg.Update(elapsedMs)

	msg, err := e.Channel.Receive()
	if err != nil {
		e.Firmware.Cancel()
		return wire.None, err
	}
	if msg == nil {
		e.Pinger.Idle(e.Platform.Millis())
		e.Firmware.Idle(e.Platform.Millis())
		return wire.None, nil
	}

	typ, err := e.HandleReceivedMessage(msg)
	if err != nil {
		e.Firmware.Cancel()
		return typ, err
	}
	return typ, nil
}

// EventLoopUntil steps the event loop until waitFor is observed
// (returns nil), an error occurs, or timeoutMs milliseconds of
// Platform.Millis time have elapsed (returns ErrMessageTimeout). Each
// step ages the ack registry by the milliseconds since the previous
// step.
func (e *Engine) EventLoopUntil(waitFor wire.MessageType, timeoutMs int64) error {
	start := e.Platform.Millis()
	last := start
	for now := start; now-start < timeoutMs; now = e.Platform.Millis() {
		typ, err := e.EventLoop(now - last)
		last = now
		if err != nil {
			return err
		}
		if typ == waitFor {
			return nil
		}
	}
	return protoerr.ErrMessageTimeout
}
