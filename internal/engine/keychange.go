package engine

import (
	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/wire"
)

// keyChangeDiscardParam is the value the payload's single-byte
// parameter option must carry to trigger a DISCARD_SESSION.
const keyChangeDiscardParam = 1

func (e *Engine) handleKeyChange(d decoded) error {
	buf := make([]byte, wire.HeaderSize)
	n := wire.EmptyAck(buf, byte(d.id>>8), byte(d.id))
	if _, err := e.Channel.Send(wire.NewMessage(buf[:n])); err != nil {
		return err
	}

	body := d.msg.Bytes()
	offset := 7 + d.tokenLen
	if offset >= len(body) {
		return nil
	}
	if body[offset] != keyChangeDiscardParam {
		return nil
	}
	return e.Channel.SessionCommand(channel.DiscardSession)
}
