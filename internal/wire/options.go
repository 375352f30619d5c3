package wire

// Option numbers used by this protocol. Only the two the describe
// exchange needs are defined; anything else on the wire is skipped by
// SkipOptions without being individually decoded.
const (
	OptionUriPath  = 11
	OptionUriQuery = 15
)

// WriteOption appends a single TLV option (delta|length nibbles, with
// 13/14-prefixed extension bytes for values that don't fit a nibble)
// at buf[pos:], returning the new write position and the option
// number to pass as prevNumber for the next option. Values are
// assumed short (this protocol only ever emits 0- or 1-byte option
// values), but the extension encoding is implemented in full so a
// larger value round-trips correctly.
func WriteOption(buf []byte, pos int, prevNumber int, optNumber int, value []byte) (newPos int, newPrevNumber int) {
	delta := optNumber - prevNumber
	length := len(value)

	deltaNibble, deltaExt := nibbleAndExtension(delta)
	lengthNibble, lengthExt := nibbleAndExtension(length)

	buf[pos] = byte(deltaNibble<<4) | byte(lengthNibble)
	pos++
	pos = appendExtension(buf, pos, deltaNibble, deltaExt)
	pos = appendExtension(buf, pos, lengthNibble, lengthExt)
	pos += copy(buf[pos:], value)

	return pos, optNumber
}

// ReadOption decodes one TLV option starting at buf[pos]. It returns
// the decoded option number, its value slice (aliasing buf), the
// position immediately after it, and ok=false if pos sits on the
// 0xFF payload marker or the buffer is exhausted.
func ReadOption(buf []byte, pos int, prevNumber int) (optNumber int, value []byte, newPos int, ok bool) {
	if pos >= len(buf) || buf[pos] == PayloadMarker {
		return 0, nil, pos, false
	}

	deltaNibble := int(buf[pos] >> 4)
	lengthNibble := int(buf[pos] & 0x0F)
	pos++

	delta, pos, ok := readExtension(buf, pos, deltaNibble)
	if !ok {
		return 0, nil, pos, false
	}
	length, pos, ok := readExtension(buf, pos, lengthNibble)
	if !ok {
		return 0, nil, pos, false
	}
	if pos+length > len(buf) {
		return 0, nil, pos, false
	}

	value = buf[pos : pos+length]
	pos += length
	return prevNumber + delta, value, pos, true
}

// SkipOptions advances pos past every option up to (and including) the
// 0xFF payload marker, returning the payload start offset. If there is
// no payload marker, it returns len(buf).
func SkipOptions(buf []byte, pos int) int {
	prev := 0
	for {
		_, _, next, ok := ReadOption(buf, pos, prev)
		if !ok {
			break
		}
		pos = next
	}
	if pos < len(buf) && buf[pos] == PayloadMarker {
		pos++
	}
	return pos
}

func nibbleAndExtension(v int) (nibble int, ext int) {
	switch {
	case v < 13:
		return v, -1
	case v < 269:
		return 13, v - 13
	default:
		return 14, v - 269
	}
}

func appendExtension(buf []byte, pos int, nibble int, ext int) int {
	if ext < 0 {
		return pos
	}
	if nibble == 13 {
		buf[pos] = byte(ext)
		return pos + 1
	}
	buf[pos] = byte(ext >> 8)
	buf[pos+1] = byte(ext)
	return pos + 2
}

func readExtension(buf []byte, pos int, nibble int) (value int, newPos int, ok bool) {
	switch {
	case nibble < 13:
		return nibble, pos, true
	case nibble == 13:
		if pos >= len(buf) {
			return 0, pos, false
		}
		return int(buf[pos]) + 13, pos + 1, true
	case nibble == 14:
		if pos+1 >= len(buf) {
			return 0, pos, false
		}
		return int(buf[pos])<<8 | int(buf[pos+1]) + 269, pos + 2, true
	default:
		// nibble == 15 (payload marker sentinel) should never reach
		// here because ReadOption checks for it before decoding.
		return 0, pos, false
	}
}
