package wire

import "encoding/binary"

// DecodeTypeField reads the 2-bit message type out of header byte 0.
func DecodeTypeField(buf []byte) WireType {
	return WireType((buf[0] >> 4) & 0x03)
}

// DecodeMessageID reads the big-endian 16-bit id from header bytes 2-3.
func DecodeMessageID(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf[2:4])
}

// DecodeCode reads the single code byte from header byte 1.
func DecodeCode(buf []byte) byte {
	return buf[1]
}

// DecodeToken returns the token bytes (aliasing buf) and its length.
// A token length other than 0 or 4 is invalid; per the leniency
// contract this never rejects the message — it reports zero length
// and a nil slice, and the caller is expected to log the anomaly.
func DecodeToken(buf []byte) (token []byte, tokenLen int, valid bool) {
	tkl := int(buf[0] & 0x0F)
	if tkl != 0 && tkl != MaxTokenLen {
		return nil, 0, false
	}
	if tkl == 0 {
		return nil, 0, true
	}
	return buf[HeaderSize : HeaderSize+tkl], tkl, true
}

// IsReply reports whether a wire type represents a reply rather than
// a request: ACK and RESET are replies, CON and NON are requests.
func IsReply(t WireType) bool {
	return t == TypeACK || t == TypeRESET
}

// ClassifyMessageType maps a code byte to the application-level
// MessageType the dispatch engine switches on.
func ClassifyMessageType(code byte) MessageType {
	switch code {
	case CodeDescribe:
		return Describe
	case CodeFunctionCall:
		return FunctionCall
	case CodeVariableRequest:
		return VariableRequest
	case CodeSaveBegin:
		return SaveBegin
	case CodeUpdateBegin:
		return UpdateBegin
	case CodeChunk:
		return Chunk
	case CodeUpdateDone:
		return UpdateDone
	case CodeEvent:
		return Event
	case CodeKeyChange:
		return KeyChange
	case CodeSignalStart:
		return SignalStart
	case CodeSignalStop:
		return SignalStop
	case CodeHello:
		return Hello
	case CodeTime:
		return Time
	case CodePing:
		return Ping
	default:
		return None
	}
}

func putHeader(buf []byte, typ WireType, tokenLen int, code byte, msgID uint16) {
	buf[0] = (ProtocolVersion << 6) | (byte(typ) << 4) | byte(tokenLen)
	buf[1] = code
	binary.BigEndian.PutUint16(buf[2:4], msgID)
}

// EmptyAck builds a bare ACK (code 0x00, no token) echoing the given
// message id bytes and returns the number of bytes written.
func EmptyAck(buf []byte, hi, lo byte) int {
	putHeader(buf, TypeACK, 0, CodeEmpty, uint16(hi)<<8|uint16(lo))
	return HeaderSize
}

// CodedAck builds an ACK carrying a code and, if non-empty, an echoed
// token, and returns the number of bytes written.
func CodedAck(buf []byte, token []byte, code byte, hi, lo byte) int {
	tokenLen := 0
	if len(token) > 0 {
		tokenLen = MaxTokenLen
	}
	putHeader(buf, TypeACK, tokenLen, code, uint16(hi)<<8|uint16(lo))
	pos := HeaderSize
	if tokenLen > 0 {
		pos += copy(buf[pos:], token[:MaxTokenLen])
	}
	return pos
}

// DescribePostHeader writes a confirmable describe-post request header
// (message id 0 — the channel assigns the real id on send), the
// device's token, a Uri-Path("d") option and, if descFlags is
// non-zero, a Uri-Query option carrying the requested describe type,
// then the payload marker. It returns the offset the describe
// document body should be appended at.
func DescribePostHeader(buf []byte, cap int, msgID uint16, token []byte, descFlags byte) int {
	tokenLen := 0
	if len(token) > 0 {
		tokenLen = MaxTokenLen
	}
	putHeader(buf, TypeCON, tokenLen, CodeDescribe, msgID)
	pos := HeaderSize
	if tokenLen > 0 {
		pos += copy(buf[pos:], token[:MaxTokenLen])
	}

	prev := 0
	pos, prev = WriteOption(buf, pos, prev, OptionUriPath, []byte{'d'})
	if descFlags != 0 {
		pos, _ = WriteOption(buf, pos, prev, OptionUriQuery, []byte{descFlags})
	}
	buf[pos] = PayloadMarker
	pos++
	return pos
}

// DescriptionResponse writes a non-confirmable response header
// carrying the given token, no options, and the payload marker, ready
// for the describe document body to follow. It returns the offset the
// body should be appended at.
func DescriptionResponse(buf []byte, msgID uint16, token []byte) int {
	tokenLen := 0
	if len(token) > 0 {
		tokenLen = MaxTokenLen
	}
	putHeader(buf, TypeNON, tokenLen, CodeOK, msgID)
	pos := HeaderSize
	if tokenLen > 0 {
		pos += copy(buf[pos:], token[:MaxTokenLen])
	}
	buf[pos] = PayloadMarker
	pos++
	return pos
}

// HelloPayload builds the HELLO message payload: product id, firmware
// version, platform id (all big-endian uint16), device id bytes, and
// a trailing flags byte. It returns the number of bytes written.
func HelloPayload(buf []byte, productID, firmwareVersion, platformID uint16, deviceID []byte, flags byte) int {
	binary.BigEndian.PutUint16(buf[0:2], productID)
	binary.BigEndian.PutUint16(buf[2:4], firmwareVersion)
	binary.BigEndian.PutUint16(buf[4:6], platformID)
	pos := 6
	pos += copy(buf[pos:], deviceID)
	buf[pos] = flags
	return pos + 1
}

// HelloMessage builds a confirmable HELLO request around HelloPayload
// and returns the total bytes written.
func HelloMessage(buf []byte, msgID uint16, productID, firmwareVersion, platformID uint16, deviceID []byte, flags byte) int {
	putHeader(buf, TypeCON, 0, CodeHello, msgID)
	pos := HeaderSize
	buf[pos] = PayloadMarker
	pos++
	pos += HelloPayload(buf[pos:], productID, firmwareVersion, platformID, deviceID, flags)
	return pos
}

// PingMessage builds a confirmable, tokenless keepalive ping and
// returns the number of bytes written.
func PingMessage(buf []byte, msgID uint16) int {
	putHeader(buf, TypeCON, 0, CodePing, msgID)
	return HeaderSize
}

// DecodeDescribeFlags extracts the describe-type byte from a Describe
// request's Uri-Query option, if present. ok is false if there is no
// such option (the caller should then fall back to DescribeDefault).
func DecodeDescribeFlags(buf []byte, optionsStart int) (flags byte, ok bool) {
	pos := optionsStart
	prev := 0
	for {
		num, value, next, present := ReadOption(buf, pos, prev)
		if !present {
			return 0, false
		}
		if num == OptionUriQuery && len(value) == 1 {
			return value[0], true
		}
		pos, prev = next, num
	}
}

// DecodeUriPath extracts the Uri-Path option value (the function or
// variable key) from a request starting at optionsStart, and returns
// the payload start offset alongside it. ok is false if there is no
// Uri-Path option, in which case name is empty and payloadStart still
// points past whatever options were present.
func DecodeUriPath(buf []byte, optionsStart int) (name string, payloadStart int, ok bool) {
	pos := optionsStart
	prev := 0
	for {
		num, value, next, present := ReadOption(buf, pos, prev)
		if !present {
			return name, SkipOptions(buf, optionsStart), ok
		}
		if num == OptionUriPath {
			name, ok = string(value), true
		}
		pos, prev = next, num
	}
}

// TimeEpoch decodes the 4-byte big-endian Unix epoch carried in a Time
// message at the fixed absolute offset 6 from the start of the
// message, independent of token length or options.
func TimeEpoch(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[6:10])
}
