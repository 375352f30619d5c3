package engine_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/crcplatform"
	"github.com/nhirsama/deviceproto/internal/descriptor"
	"github.com/nhirsama/deviceproto/internal/engine"
	"github.com/nhirsama/deviceproto/internal/firmware"
	"github.com/nhirsama/deviceproto/internal/heartbeat"
	"github.com/nhirsama/deviceproto/internal/memchannel"
	"github.com/nhirsama/deviceproto/internal/protoerr"
	"github.com/nhirsama/deviceproto/internal/registry"
	"github.com/nhirsama/deviceproto/internal/subscription"
	"github.com/nhirsama/deviceproto/internal/timesync"
	"github.com/nhirsama/deviceproto/internal/wire"
)

func newTestEngine(ch channel.Channel) (*engine.Engine, *registry.Registry) {
	platform := crcplatform.New(false)
	reg := registry.New(platform)
	e := engine.New(ch, platform, reg,
		heartbeat.New(30000),
		timesync.New(),
		firmware.New(platform),
		subscription.New(reg),
		engine.Identity{ProductID: 6, FirmwareVersion: 200, PlatformID: 32, DeviceID: []byte{1, 2, 3, 4}},
		zerolog.Nop(),
	)
	e.Init()
	return e, reg
}

func TestBeginFullHandshakeSendsHello(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, _ := newTestEngine(ch)

	err := e.Begin()
	require.NoError(t, err)

	sent := ch.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, wire.Hello, wire.ClassifyMessageType(wire.DecodeCode(sent[0].Bytes())))
	assert.True(t, ch.Notified())
}

func TestBeginResumedFastPathSkipsHello(t *testing.T) {
	ch := memchannel.New(channel.SessionResumed)
	e, reg := newTestEngine(ch)

	systemCRC, _ := reg.AppStateSelectorInfo(channel.SelectorSystemDescribe, channel.OpCompute, 0, nil)
	appCRC, _ := reg.AppStateSelectorInfo(channel.SelectorAppDescribe, channel.OpCompute, 0, nil)
	subsCRC, _ := reg.AppStateSelectorInfo(channel.SelectorSubscriptions, channel.OpCompute, 0, nil)
	cached := descriptor.New().WithSystemCRC(systemCRC).WithAppCRC(appCRC).
		WithSubscriptionsCRC(subsCRC).WithProtocolFlags(0)
	ch.WithCachedDescriptor(cached)

	err := e.Begin()
	assert.ErrorIs(t, err, protoerr.ErrSessionResumed)

	sent := ch.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, wire.Ping, wire.ClassifyMessageType(wire.DecodeCode(sent[0].Bytes())))
	assert.Contains(t, ch.Commands(), channel.MoveSession)
}

func TestBeginResumedStateChangedFallsBackToHello(t *testing.T) {
	ch := memchannel.New(channel.SessionResumed)
	e, _ := newTestEngine(ch)
	ch.WithCachedDescriptor(descriptor.New().WithSystemCRC(0xDEAD).WithAppCRC(0).WithSubscriptionsCRC(0).WithProtocolFlags(0))

	err := e.Begin()
	require.NoError(t, err)

	sent := ch.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, wire.Hello, wire.ClassifyMessageType(wire.DecodeCode(sent[0].Bytes())))
}

func TestPostDescriptionSendsDescribeMessage(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, reg := newTestEngine(ch)
	reg.RegisterFunction("blink", func(args []byte) ([]byte, error) { return nil, nil })

	err := e.PostDescription(0x03, true)
	require.NoError(t, err)

	sent := ch.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, wire.Describe, wire.ClassifyMessageType(wire.DecodeCode(sent[0].Bytes())))
}

func TestEventLoopDispatchesPing(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, _ := newTestEngine(ch)

	buf := make([]byte, wire.HeaderSize)
	n := wire.PingMessage(buf, 42)
	ch.Inject(wire.NewMessage(buf[:n]))

	typ, err := e.EventLoop(10)
	require.NoError(t, err)
	assert.Equal(t, wire.Ping, typ)

	sent := ch.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, wire.TypeACK, wire.DecodeTypeField(sent[0].Bytes()))
}

func TestEventLoopWithNoMessageRunsIdle(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, _ := newTestEngine(ch)

	typ, err := e.EventLoop(10)
	require.NoError(t, err)
	assert.Equal(t, wire.None, typ)
}
