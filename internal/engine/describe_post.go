package engine

import (
	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/describe"
	"github.com/nhirsama/deviceproto/internal/protoerr"
	"github.com/nhirsama/deviceproto/internal/wire"
)

// PostDescription spontaneously posts a describe document for the
// flags requested. Unless force is set, flags whose cached CRC
// already matches the current computed CRC are dropped — posting
// with force=false twice in a row issues exactly one network send
// (property 8).
func (e *Engine) PostDescription(descFlags describe.Flags, force bool) error {
	if !force {
		current, err := e.AppStateDescriptor()
		if err != nil {
			return err
		}
		if descFlags&describe.DescribeSystem != 0 {
			if crc, err := e.Descriptor.AppStateSelectorInfo(channel.SelectorSystemDescribe, channel.OpCompute, 0, nil); err == nil {
				if v, ok := current.SystemCRC(); ok && v == crc {
					descFlags &^= describe.DescribeSystem
				}
			}
		}
		if descFlags&describe.DescribeApplication != 0 {
			if crc, err := e.Descriptor.AppStateSelectorInfo(channel.SelectorAppDescribe, channel.OpCompute, 0, nil); err == nil {
				if v, ok := current.AppCRC(); ok && v == crc {
					descFlags &^= describe.DescribeApplication
				}
			}
		}
		if descFlags == 0 {
			return nil
		}
	}

	buf := make([]byte, MaxDescribeDocSize)
	token := e.GetNextToken()
	tokenBytes := tokenToBytes(token)

	bodyOffset := wire.DescribePostHeader(buf, len(buf), 0, tokenBytes, byte(descFlags))
	appender := describe.NewBufAppender(buf[bodyOffset:])
	describe.Build(appender, e.Descriptor.DescribeCallbacks(), descFlags)
	if appender.Overflowed() {
		panic(protoerr.ErrDescribeOverflow)
	}

	total := bodyOffset + appender.Len()
	assignedID, err := e.Channel.Send(wire.NewMessage(buf[:total]))
	if err != nil {
		return err
	}

	if descFlags&describe.DescribeApplication != 0 {
		e.appDescribeMsgID = assignedID
	}
	if descFlags&describe.DescribeSystem != 0 {
		e.systemDescribeMsgID = assignedID
	}
	return nil
}

// SendDescriptionResponse acks the request and then sends the
// describe document as a separate response carrying the same token.
func (e *Engine) SendDescriptionResponse(token []byte, msgID uint16, descFlags describe.Flags) error {
	ackBuf := make([]byte, wire.HeaderSize)
	n := wire.EmptyAck(ackBuf, byte(msgID>>8), byte(msgID))
	if _, err := e.Channel.Send(wire.NewMessage(ackBuf[:n])); err != nil {
		return err
	}

	buf := make([]byte, MaxDescribeDocSize)
	bodyOffset := wire.DescriptionResponse(buf, msgID, token)
	appender := describe.NewBufAppender(buf[bodyOffset:])
	describe.Build(appender, e.Descriptor.DescribeCallbacks(), descFlags)
	if appender.Overflowed() {
		panic(protoerr.ErrDescribeOverflow)
	}

	total := bodyOffset + appender.Len()
	_, err := e.Channel.Send(wire.NewMessage(buf[:total]))
	return err
}

func tokenToBytes(t uint32) []byte {
	return []byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
}
