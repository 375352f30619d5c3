package engine

import (
	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/descriptor"
)

// AppStateDescriptor computes the device's current composite
// descriptor: a pure function of the descriptor callback outputs and
// protocolFlags at the moment it's called (property 3).
func (e *Engine) AppStateDescriptor() (descriptor.AppStateDescriptor, error) {
	d := descriptor.New()

	systemCRC, err := e.Descriptor.AppStateSelectorInfo(channel.SelectorSystemDescribe, channel.OpCompute, 0, nil)
	if err != nil {
		return d, err
	}
	d = d.WithSystemCRC(systemCRC)

	appCRC, err := e.Descriptor.AppStateSelectorInfo(channel.SelectorAppDescribe, channel.OpCompute, 0, nil)
	if err != nil {
		return d, err
	}
	d = d.WithAppCRC(appCRC)

	subsCRC, err := e.Descriptor.AppStateSelectorInfo(channel.SelectorSubscriptions, channel.OpCompute, 0, nil)
	if err != nil {
		return d, err
	}
	d = d.WithSubscriptionsCRC(subsCRC)

	d = d.WithProtocolFlags(uint32(e.protocolFlags))
	return d, nil
}

