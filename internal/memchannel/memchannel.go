// Package memchannel is an in-process channel.Channel backed by two Go
// channels, standing in for a real framed transport in tests. It lets
// a test inject inbound messages and inspect outbound ones without any
// networking, and simulates session resumption with an in-memory
// descriptor cache rather than a real persisted session blob.
package memchannel

import (
	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/descriptor"
	"github.com/nhirsama/deviceproto/internal/wire"
)

// Channel is a test double for channel.Channel.
type Channel struct {
	inbox  chan *wire.Message
	outbox chan *wire.Message

	establishResult channel.EstablishResult
	establishErr    error

	cachedDescriptor    descriptor.AppStateDescriptor
	hasCachedDescriptor bool

	nextID uint16

	commands  []channel.SessionCommand
	notified  bool
}

// New returns a Channel whose Establish call reports result.
func New(result channel.EstablishResult) *Channel {
	return &Channel{
		inbox:  make(chan *wire.Message, 32),
		outbox: make(chan *wire.Message, 32),
		establishResult: result,
		nextID: 1,
	}
}

// WithCachedDescriptor pre-seeds the resumed-session descriptor cache,
// as if a prior session had persisted it.
func (c *Channel) WithCachedDescriptor(d descriptor.AppStateDescriptor) *Channel {
	c.cachedDescriptor, c.hasCachedDescriptor = d, true
	return c
}

// Inject queues msg to be returned by the next Receive call.
func (c *Channel) Inject(msg *wire.Message) {
	c.inbox <- msg
}

// Sent drains and returns every message queued by Send so far.
func (c *Channel) Sent() []*wire.Message {
	var out []*wire.Message
	for {
		select {
		case m := <-c.outbox:
			out = append(out, m)
		default:
			return out
		}
	}
}

// Commands returns every SessionCommand issued so far, in order.
func (c *Channel) Commands() []channel.SessionCommand { return c.commands }

// Notified reports whether NotifyEstablished has been called.
func (c *Channel) Notified() bool { return c.notified }

func (c *Channel) Establish() (channel.EstablishResult, error) {
	return c.establishResult, c.establishErr
}

func (c *Channel) Send(msg *wire.Message) (uint16, error) {
	buf := msg.Bytes()
	id := wire.DecodeMessageID(buf)
	if id == 0 {
		id = c.nextID
		c.nextID++
		buf[2], buf[3] = byte(id>>8), byte(id)
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	c.outbox <- wire.NewMessage(cp)
	return id, nil
}

func (c *Channel) Receive() (*wire.Message, error) {
	select {
	case m := <-c.inbox:
		return m, nil
	default:
		return nil, nil
	}
}

func (c *Channel) SessionCommand(cmd channel.SessionCommand) error {
	c.commands = append(c.commands, cmd)
	return nil
}

func (c *Channel) CachedAppStateDescriptor() (descriptor.AppStateDescriptor, bool) {
	return c.cachedDescriptor, c.hasCachedDescriptor
}

func (c *Channel) NotifyEstablished() {
	c.notified = true
}
