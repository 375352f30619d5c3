package engine_test

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/crcplatform"
	"github.com/nhirsama/deviceproto/internal/describe"
	"github.com/nhirsama/deviceproto/internal/engine"
	"github.com/nhirsama/deviceproto/internal/firmware"
	"github.com/nhirsama/deviceproto/internal/heartbeat"
	"github.com/nhirsama/deviceproto/internal/memchannel"
	"github.com/nhirsama/deviceproto/internal/protoerr"
	"github.com/nhirsama/deviceproto/internal/registry"
	"github.com/nhirsama/deviceproto/internal/subscription"
	"github.com/nhirsama/deviceproto/internal/wire"
)

func TestResetReplyFiresInternalServerError(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, _ := newTestEngine(ch)

	var got error
	e.AckReg.Register(0x0021, 1000, func() { t.Fatal("onSuccess should not fire for a RESET reply") }, func(err error) { got = err })

	buf := make([]byte, wire.HeaderSize)
	buf[0] = (wire.ProtocolVersion << 6) | (byte(wire.TypeRESET) << 4)
	buf[1] = wire.CodeEmpty
	buf[2], buf[3] = 0x00, 0x21
	ch.Inject(wire.NewMessage(buf))

	_, err := e.EventLoop(0)
	require.NoError(t, err)
	assert.ErrorIs(t, got, protoerr.ErrInternalServer)
}

func TestKeyChangeDiscardTriggerAtCorrectOffset(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, _ := newTestEngine(ch)

	// tokenLen=4 puts the trigger byte at absolute offset 7+4=11.
	buf := make([]byte, 12)
	buf[0] = (wire.ProtocolVersion << 6) | (byte(wire.TypeCON) << 4) | byte(wire.MaxTokenLen)
	buf[1] = wire.CodeKeyChange
	buf[2], buf[3] = 0x00, 0x01
	buf[11] = 1 // discard-session trigger value
	ch.Inject(wire.NewMessage(buf))

	typ, err := e.EventLoop(0)
	require.NoError(t, err)
	assert.Equal(t, wire.KeyChange, typ)
	assert.Contains(t, ch.Commands(), channel.DiscardSession)
}

func TestKeyChangeNonTriggerByteDoesNotDiscard(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, _ := newTestEngine(ch)

	buf := make([]byte, 12)
	buf[0] = (wire.ProtocolVersion << 6) | (byte(wire.TypeCON) << 4) | byte(wire.MaxTokenLen)
	buf[1] = wire.CodeKeyChange
	buf[2], buf[3] = 0x00, 0x02
	buf[11] = 0
	ch.Inject(wire.NewMessage(buf))

	_, err := e.EventLoop(0)
	require.NoError(t, err)
	assert.NotContains(t, ch.Commands(), channel.DiscardSession)
}

func TestDescribeRequestDefaultAcksThenSendsJSON(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, reg := newTestEngine(ch)
	reg.RegisterFunction("blink", func(args []byte) ([]byte, error) { return nil, nil })

	buf := make([]byte, wire.HeaderSize)
	buf[0] = (wire.ProtocolVersion << 6) | (byte(wire.TypeCON) << 4)
	buf[1] = wire.CodeDescribe
	buf[2], buf[3] = 0x00, 0x30
	ch.Inject(wire.NewMessage(buf))

	typ, err := e.EventLoop(0)
	require.NoError(t, err)
	assert.Equal(t, wire.Describe, typ)

	sent := ch.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, wire.TypeACK, wire.DecodeTypeField(sent[0].Bytes()))
	assert.Equal(t, wire.CodeOK, wire.DecodeCode(sent[1].Bytes()))
	assert.True(t, strings.HasPrefix(string(sent[1].Bytes()[wire.HeaderSize+1:]), "{"))
}

func TestTimeMessageDrivesTimeSync(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	platform := crcplatform.New(false)
	reg := registry.New(platform)
	ts := &recordingTimeSync{}
	e := engine.New(ch, platform, reg,
		heartbeat.New(30000), ts, firmware.New(platform), subscription.New(reg),
		engine.Identity{ProductID: 6, FirmwareVersion: 200, PlatformID: 32, DeviceID: []byte{1, 2, 3, 4}},
		zerolog.Nop(),
	)
	e.Init()

	buf := make([]byte, 10)
	buf[0] = (wire.ProtocolVersion << 6) | (byte(wire.TypeCON) << 4)
	buf[1] = wire.CodeTime
	buf[2], buf[3] = 0x00, 0x40
	buf[6], buf[7], buf[8], buf[9] = 0x5E, 0x00, 0x00, 0x00
	ch.Inject(wire.NewMessage(buf))

	typ, err := e.EventLoop(0)
	require.NoError(t, err)
	assert.Equal(t, wire.Time, typ)
	require.True(t, ts.called)
	assert.EqualValues(t, 0x5E000000, ts.epoch)
}

type recordingTimeSync struct {
	called bool
	epoch  uint32
}

func (r *recordingTimeSync) Reset() {}
func (r *recordingTimeSync) HandleTimeResponse(epoch uint32, millis int64, setTime func(uint32)) {
	r.called = true
	r.epoch = epoch
}

func TestFunctionCallWithoutTokenReturnsErrMissingRequestToken(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, reg := newTestEngine(ch)

	called := false
	reg.RegisterFunction("blink", func(args []byte) ([]byte, error) { called = true; return nil, nil })

	buf := make([]byte, wire.HeaderSize)
	buf[0] = (wire.ProtocolVersion << 6) | (byte(wire.TypeCON) << 4)
	buf[1] = wire.CodeFunctionCall
	buf[2], buf[3] = 0x00, 0x50
	ch.Inject(wire.NewMessage(buf))

	_, err := e.EventLoop(0)
	assert.ErrorIs(t, err, protoerr.ErrMissingRequestToken)
	assert.False(t, called, "CallFunction must not run without a request token")
}

func TestSystemDescribeAckPersistsCRCAndClearsPendingID(t *testing.T) {
	ch := memchannel.New(channel.FullHandshake)
	e, reg := newTestEngine(ch)
	reg.RegisterFunction("blink", func(args []byte) ([]byte, error) { return nil, nil })

	require.NoError(t, e.PostDescription(describe.DescribeSystem, true))
	sent := ch.Sent()
	require.Len(t, sent, 1)
	id := wire.DecodeMessageID(sent[0].Bytes())

	ackBuf := make([]byte, wire.HeaderSize)
	n := wire.EmptyAck(ackBuf, byte(id>>8), byte(id))
	ch.Inject(wire.NewMessage(ackBuf[:n]))

	typ, err := e.EventLoop(0)
	require.NoError(t, err)
	assert.Equal(t, wire.None, typ) // an ACK carries no application MessageType

	require.Len(t, ch.Commands(), 2)
	assert.Equal(t, channel.SaveSession, ch.Commands()[0])
	assert.Equal(t, channel.LoadSession, ch.Commands()[1])

	// The pending id is cleared on first ACK; a duplicate/late ACK with
	// the same id must not run the persist guard a second time.
	ch.Inject(wire.NewMessage(ackBuf[:n]))
	_, err = e.EventLoop(0)
	require.NoError(t, err)
	assert.Len(t, ch.Commands(), 2)
}
