// Package describe builds the device description document — the JSON
// enumeration of functions and variables (plus optional system info)
// or the binary metrics blob — into a bounded Appender.
package describe

// Flags is the describe-type bitfield.
type Flags uint8

const (
	DescribeSystem      Flags = 1 << 0
	DescribeApplication Flags = 1 << 1
	DescribeMetrics     Flags = 1 << 2

	DescribeDefault = DescribeSystem | DescribeApplication
	DescribeMax     = DescribeSystem | DescribeApplication | DescribeMetrics
)

const (
	// MaxFunctionKeyLength and MaxVariableKeyLength bound the emitted
	// key length; longer names are silently truncated on emit, never
	// on registration, per the source's replacement strategy for key
	// truncation.
	MaxFunctionKeyLength = 12
	MaxVariableKeyLength = 12
)

// Callbacks is the descriptor callback surface the builder pulls
// content from. A nil SystemInfo/Metrics func means "no callback
// present" per the spec's "present" checks.
type Callbacks struct {
	NumFunctions  int
	FunctionKey   func(i int) string
	NumVariables  int
	VariableKey   func(i int) string
	VariableType  func(i int) byte
	SystemInfo    func(a Appender)
	Metrics       func(a Appender, flags byte, page byte)
}

// Build writes the describe document for descFlags into a. Metrics is
// exclusive: if DescribeMetrics is set in isolation and a metrics
// callback is present, the binary form (the prefix 0x00 0x02 0x00,
// then the metrics blob) is emitted and nothing else runs. Otherwise the JSON text form is emitted for whichever of
// DescribeSystem/DescribeApplication are set.
func Build(a Appender, cb Callbacks, descFlags Flags) {
	if descFlags == DescribeMetrics && cb.Metrics != nil {
		a.Append([]byte{0x00, 0x02, 0x00})
		cb.Metrics(a, 1, 0)
		return
	}

	a.AppendByte('{')
	wroteApp := false

	if descFlags&DescribeApplication != 0 {
		writeFunctions(a, cb)
		writeVariables(a, cb)
		wroteApp = true
	}

	if descFlags&DescribeSystem != 0 && cb.SystemInfo != nil {
		if wroteApp {
			a.AppendByte(',')
		}
		cb.SystemInfo(a)
	}

	a.AppendByte('}')
}

func writeFunctions(a Appender, cb Callbacks) {
	a.Append([]byte(`"f":[`))
	for i := 0; i < cb.NumFunctions; i++ {
		if i > 0 {
			a.AppendByte(',')
		}
		a.AppendByte('"')
		a.Append(truncate(cb.FunctionKey(i), MaxFunctionKeyLength))
		a.AppendByte('"')
	}
	a.AppendByte(']')
}

func writeVariables(a Appender, cb Callbacks) {
	a.Append([]byte(`,"v":{`))
	for i := 0; i < cb.NumVariables; i++ {
		if i > 0 {
			a.AppendByte(',')
		}
		a.AppendByte('"')
		a.Append(truncate(cb.VariableKey(i), MaxVariableKeyLength))
		a.Append([]byte{'"', ':'})
		a.AppendByte('0' + cb.VariableType(i))
	}
	a.AppendByte('}')
}

func truncate(s string, max int) []byte {
	b := []byte(s)
	if len(b) > max {
		b = b[:max]
	}
	return b
}

// Size computes the document size for descFlags without allocating a
// real buffer, using a SizeAppender.
func Size(cb Callbacks, descFlags Flags) int {
	sz := NewSizeAppender()
	Build(sz, cb, descFlags)
	return sz.Len()
}
