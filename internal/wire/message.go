// Package wire implements the constrained-application message codec:
// pure functions over raw byte buffers for the 4-byte header, the
// optional 4-byte token, TLV options, and the payload marker. It has
// no knowledge of sessions, handlers, or dispatch — only bytes in,
// bytes out, the way protocol_impl.go's GosterCodec stays a pure
// Pack/Unpack pair with no engine state.
package wire

// WireType is the 2-bit type field in byte 0 of the header.
type WireType byte

const (
	TypeCON   WireType = 0
	TypeNON   WireType = 1
	TypeACK   WireType = 2
	TypeRESET WireType = 3
)

// MessageType is the application-level classification the dispatch
// engine switches on, derived from the code/option bytes rather than
// stored directly on the wire.
type MessageType int

const (
	None MessageType = iota
	Describe
	FunctionCall
	VariableRequest
	SaveBegin
	UpdateBegin
	Chunk
	UpdateDone
	Event
	KeyChange
	SignalStart
	SignalStop
	Hello
	Time
	Ping
	Error
)

// Message-code bytes (class<<5 | detail), matching the CoAP-style
// class 0 request codes this protocol reuses for its own command set.
const (
	CodeEmpty           byte = 0x00
	CodeGet             byte = 0x01
	CodePost            byte = 0x02
	CodeOK              byte = 0x40 // class 2 detail 0 (2.00)
	CodeDescribe        byte = 0x0E
	CodeFunctionCall    byte = 0x30
	CodeVariableRequest byte = 0x31
	CodeSaveBegin       byte = 0x33
	CodeUpdateBegin     byte = 0x34
	CodeChunk           byte = 0x35
	CodeUpdateDone      byte = 0x36
	CodeEvent           byte = 0x37
	CodeKeyChange       byte = 0x38
	CodeSignalStart     byte = 0x39
	CodeSignalStop      byte = 0x3A
	CodeHello           byte = 0x3B
	CodeTime            byte = 0x3C
	CodePing            byte = 0x3D
)

const (
	// HeaderSize is the fixed 4-byte header: version/type/tokenlen,
	// code, 16-bit message id.
	HeaderSize = 4
	// MaxTokenLen bounds the token this protocol ever emits or accepts.
	MaxTokenLen = 4
	// PayloadMarker precedes the payload, per the wire format.
	PayloadMarker byte = 0xFF
	// ProtocolVersion is the 2-bit version field, always 1 here.
	ProtocolVersion byte = 1
)

// Message owns a mutable byte buffer and its current length; header
// fields are decoded from the bytes on demand by the codec functions.
// The buffer is always borrowed from the channel; Message never retains
// it past the call that produced it — callers copy out what they need.
type Message struct {
	Buf []byte
	Len int
}

// NewMessage wraps a caller-owned buffer. Len is set to the buffer's
// full length.
func NewMessage(buf []byte) *Message {
	return &Message{Buf: buf, Len: len(buf)}
}

// Bytes returns the message's current bytes, Len-bounded.
func (m *Message) Bytes() []byte {
	return m.Buf[:m.Len]
}
