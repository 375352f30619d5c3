package describe

// Appender is the target the describe builder writes into. A real
// send uses BufAppender, writing straight into the channel's send
// buffer to avoid double-buffering; a dry-run size computation uses
// SizeAppender, which counts bytes without allocating.
type Appender interface {
	// Append writes p; whether it fit is reported by Overflowed. On
	// overflow, Append still accounts for p's length (so Len() reflects the size the
	// document would have needed) but stops copying into the buffer.
	Append(p []byte)
	// AppendByte is a single-byte convenience wrapper around Append.
	AppendByte(b byte)
	// Overflowed reports whether any write since construction exceeded
	// the target's capacity.
	Overflowed() bool
	// Len reports the number of bytes appended so far (including the
	// portion that didn't fit, once overflowed).
	Len() int
}

// BufAppender writes into a fixed-capacity byte slice.
type BufAppender struct {
	buf        []byte
	pos        int
	overflowed bool
}

// NewBufAppender wraps buf; writes beyond len(buf) are dropped and
// flagged as overflow rather than panicking or growing the slice —
// the caller (session orchestrator) decides overflow is fatal.
func NewBufAppender(buf []byte) *BufAppender {
	return &BufAppender{buf: buf}
}

func (a *BufAppender) Append(p []byte) {
	if a.pos+len(p) > len(a.buf) {
		fit := len(a.buf) - a.pos
		if fit > 0 {
			copy(a.buf[a.pos:], p[:fit])
		}
		a.pos += len(p)
		a.overflowed = true
		return
	}
	copy(a.buf[a.pos:], p)
	a.pos += len(p)
}

func (a *BufAppender) AppendByte(b byte) {
	a.Append([]byte{b})
}

func (a *BufAppender) Overflowed() bool { return a.overflowed }
func (a *BufAppender) Len() int         { return a.pos }

// Bytes returns the written prefix (bounded by capacity even on
// overflow).
func (a *BufAppender) Bytes() []byte {
	n := a.pos
	if n > len(a.buf) {
		n = len(a.buf)
	}
	return a.buf[:n]
}

// SizeAppender only counts bytes; it never reports overflow since it
// has no capacity of its own, and exists purely so callers can learn
// how large a document would be before allocating a real buffer for it.
type SizeAppender struct {
	n int
}

func NewSizeAppender() *SizeAppender { return &SizeAppender{} }

func (a *SizeAppender) Append(p []byte)  { a.n += len(p) }
func (a *SizeAppender) AppendByte(byte)  { a.n++ }
func (a *SizeAppender) Overflowed() bool { return false }
func (a *SizeAppender) Len() int         { return a.n }
