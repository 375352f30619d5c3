// Package subscription implements channel.SubscriptionEngine: routing
// inbound Event messages to the descriptor callback's event handler.
package subscription

// EventHandler is the subset of channel.DescriptorCallbacks this
// package needs.
type EventHandler interface {
	CallEventHandler(name string, data []byte) error
}

// Engine decodes an Event message's name-length-prefixed payload and
// dispatches it to the descriptor callback.
type Engine struct {
	callbacks EventHandler
}

// New returns an Engine dispatching through callbacks.
func New(callbacks EventHandler) *Engine {
	return &Engine{callbacks: callbacks}
}

// HandleEvent expects a 1-byte name length, the name, then the event
// data for the remainder of msg.
func (e *Engine) HandleEvent(msg []byte) error {
	if len(msg) < 1 {
		return nil
	}
	nameLen := int(msg[0])
	if len(msg) < 1+nameLen {
		return nil
	}
	name := string(msg[1 : 1+nameLen])
	data := msg[1+nameLen:]
	return e.callbacks.CallEventHandler(name, data)
}
