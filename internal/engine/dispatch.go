package engine

import (
	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/describe"
	"github.com/nhirsama/deviceproto/internal/protoerr"
	"github.com/nhirsama/deviceproto/internal/wire"
)

// MaxDescribeDocSize bounds a describe document buffer, both for the
// spontaneous post (§4.9) and the request-triggered response (§4.5).
const MaxDescribeDocSize = 1024

// decoded is the header-plus-token view of an inbound message that
// HandleReceivedMessage and its helpers share.
type decoded struct {
	msg          *wire.Message
	typ          wire.WireType
	token        []byte
	tokenLen     int
	tokenValid   bool
	id           uint16
	code         byte
	messageType  wire.MessageType
	optionsStart int
}

func decode(msg *wire.Message) decoded {
	buf := msg.Bytes()
	token, tokenLen, ok := wire.DecodeToken(buf)
	typ := wire.DecodeTypeField(buf)
	messageType := wire.ClassifyMessageType(wire.DecodeCode(buf))
	if typ == wire.TypeCON && wire.DecodeCode(buf) == wire.CodeEmpty {
		// A confirmable message with the empty code is a ping.
		messageType = wire.Ping
	}
	return decoded{
		msg:          msg,
		typ:          typ,
		token:        token,
		tokenLen:     tokenLen,
		tokenValid:   ok,
		id:           wire.DecodeMessageID(buf),
		code:         wire.DecodeCode(buf),
		messageType:  messageType,
		optionsStart: wire.HeaderSize + tokenLen,
	}
}

// HandleReceivedMessage decodes msg, updates activity bookkeeping,
// reconciles it against the ack registry if it's a reply, and
// otherwise dispatches it to the appropriate handler. It returns the
// classified MessageType and an error only for genuine protocol
// failures — dropping an unknown or malformed message is not an error.
func (e *Engine) HandleReceivedMessage(msg *wire.Message) (wire.MessageType, error) {
	e.touchActivity()

	d := decode(msg)
	if !d.tokenValid {
		e.Log.Warn().Msg("dropping token of invalid length, treating as absent")
	}

	if wire.IsReply(d.typ) {
		e.handleReply(d)
		return d.messageType, nil
	}

	return d.messageType, e.handleRequest(d)
}

func (e *Engine) handleReply(d decoded) {
	code := d.code
	if d.typ == wire.TypeRESET {
		e.AckReg.SetError(d.id, protoerr.ErrInternalServer)
	} else {
		e.notifyMessageComplete(d.id, code)
	}

	isACK := d.typ == wire.TypeACK
	switch d.id {
	case e.appDescribeMsgID:
		e.appDescribeMsgID = InvalidMessageHandle
		if isACK {
			e.withPersistGuard(func() {
				e.Descriptor.AppStateSelectorInfo(channel.SelectorAppDescribe, channel.OpComputeAndPersist, 0, nil)
			})
		}
	case e.systemDescribeMsgID:
		e.systemDescribeMsgID = InvalidMessageHandle
		if isACK {
			e.withPersistGuard(func() {
				e.Descriptor.AppStateSelectorInfo(channel.SelectorSystemDescribe, channel.OpComputeAndPersist, 0, nil)
			})
		}
	case e.subscriptionsMsgID:
		e.subscriptionsMsgID = InvalidMessageHandle
		if isACK {
			e.withPersistGuard(func() {
				e.Descriptor.AppStateSelectorInfo(channel.SelectorSubscriptions, channel.OpComputeAndPersist, 0, nil)
			})
		}
	}
}

// notifyMessageComplete classifies a reply code by CoAP-style class
// and fires the matching ack handler.
func (e *Engine) notifyMessageComplete(id uint16, code byte) {
	class := code >> 5
	switch class {
	case 2:
		e.AckReg.SetResult(id)
	case 4:
		e.AckReg.SetError(id, protoerr.Err4xx)
	case 5:
		e.AckReg.SetError(id, protoerr.Err5xx)
	default:
		e.AckReg.SetError(id, protoerr.ErrInternalServer)
	}
}

// withPersistGuard wraps a descriptor-callback invocation with the
// SAVE_SESSION/.../LOAD_SESSION envelope the spec makes mandatory
// around every persistence call, guarding against re-entrant mutation
// of session bytes while the callback reads/writes them.
func (e *Engine) withPersistGuard(fn func()) {
	e.Channel.SessionCommand(channel.SaveSession)
	defer e.Channel.SessionCommand(channel.LoadSession)
	fn()
}

func (e *Engine) handleRequest(d decoded) error {
	switch d.messageType {
	case wire.Describe:
		return e.handleDescribeRequest(d)
	case wire.FunctionCall:
		if d.tokenLen == 0 {
			return protoerr.ErrMissingRequestToken
		}
		name, payloadStart, _ := wire.DecodeUriPath(d.msg.Bytes(), d.optionsStart)
		_, err := e.Descriptor.CallFunction(d.token, name, d.msg.Bytes()[payloadStart:])
		return err
	case wire.VariableRequest:
		if d.tokenLen == 0 {
			return protoerr.ErrMissingRequestToken
		}
		name, _, _ := wire.DecodeUriPath(d.msg.Bytes(), d.optionsStart)
		_, err := e.Descriptor.ReadVariable(d.token, name)
		return err
	case wire.SaveBegin:
		return e.Firmware.HandleSaveBegin(payloadOf(d))
	case wire.UpdateBegin:
		return e.Firmware.HandleUpdateBegin(payloadOf(d))
	case wire.Chunk:
		return e.Firmware.HandleChunk(payloadOf(d))
	case wire.UpdateDone:
		return e.Firmware.HandleUpdateDone(payloadOf(d))
	case wire.Event:
		return e.Subs.HandleEvent(payloadOf(d))
	case wire.KeyChange:
		return e.handleKeyChange(d)
	case wire.SignalStart:
		return e.replySignal(d, true)
	case wire.SignalStop:
		return e.replySignal(d, false)
	case wire.Hello:
		return e.handleHello(d)
	case wire.Time:
		return e.handleTime(d)
	case wire.Ping:
		return e.replyPing(d)
	default:
		e.Log.Debug().Uint8("code", d.code).Msg("dropping unrecognized message")
		return nil
	}
}

// payloadOf returns the bytes of d after its options and payload marker.
func payloadOf(d decoded) []byte {
	buf := d.msg.Bytes()
	return buf[wire.SkipOptions(buf, d.optionsStart):]
}

func (e *Engine) handleDescribeRequest(d decoded) error {
	flags, ok := wire.DecodeDescribeFlags(d.msg.Bytes(), d.optionsStart)
	if !ok || describe.Flags(flags) > describe.DescribeMax {
		flags = byte(describe.DescribeDefault)
	}
	return e.SendDescriptionResponse(d.token, d.id, describe.Flags(flags))
}

func (e *Engine) replySignal(d decoded, on bool) error {
	buf := make([]byte, wire.HeaderSize)
	n := wire.CodedAck(buf, nil, wire.CodeOK, byte(d.id>>8), byte(d.id))
	_, err := e.Channel.Send(wire.NewMessage(buf[:n]))
	if err != nil {
		return err
	}
	e.Platform.Signal(on, 0, 0)
	return nil
}

func (e *Engine) replyPing(d decoded) error {
	buf := make([]byte, wire.HeaderSize)
	n := wire.EmptyAck(buf, byte(d.id>>8), byte(d.id))
	_, err := e.Channel.Send(wire.NewMessage(buf[:n]))
	return err
}

func (e *Engine) handleHello(d decoded) error {
	if d.typ == wire.TypeCON {
		buf := make([]byte, wire.HeaderSize)
		n := wire.EmptyAck(buf, byte(d.id>>8), byte(d.id))
		if _, err := e.Channel.Send(wire.NewMessage(buf[:n])); err != nil {
			return err
		}
	}
	e.Log.Debug().Msg("OTA status acknowledged by cloud HELLO")
	return nil
}

func (e *Engine) handleTime(d decoded) error {
	epoch := wire.TimeEpoch(d.msg.Bytes())
	e.TimeSync.HandleTimeResponse(epoch, e.Platform.Millis(), e.Platform.SetTime)
	return nil
}
