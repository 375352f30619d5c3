package describe

import (
	"strings"
	"testing"
)

func sampleCallbacks() Callbacks {
	functions := []string{"digitalWrite", "aVeryLongFunctionNameThatOverflows"}
	variables := []string{"temp", "humidity"}
	types := []byte{2, 3}
	return Callbacks{
		NumFunctions: len(functions),
		FunctionKey:  func(i int) string { return functions[i] },
		NumVariables: len(variables),
		VariableKey:  func(i int) string { return variables[i] },
		VariableType: func(i int) byte { return types[i] },
	}
}

func TestBuildDefaultStartsWithFunctions(t *testing.T) {
	buf := make([]byte, 256)
	a := NewBufAppender(buf)
	Build(a, sampleCallbacks(), DescribeDefault)

	got := string(a.Bytes())
	if !strings.HasPrefix(got, `{"f":[`) {
		t.Fatalf("document = %q, want prefix {\"f\":[", got)
	}
	if a.Overflowed() {
		t.Error("unexpected overflow")
	}
}

func TestBuildTruncatesLongFunctionKeys(t *testing.T) {
	buf := make([]byte, 256)
	a := NewBufAppender(buf)
	Build(a, sampleCallbacks(), DescribeApplication)

	got := string(a.Bytes())
	if strings.Contains(got, "Overflows") {
		t.Errorf("expected truncation, got untruncated key in %q", got)
	}
	if !strings.Contains(got, "aVeryLongFun") {
		t.Errorf("expected truncated key present, got %q", got)
	}
}

func TestBuildVariableTypeCode(t *testing.T) {
	buf := make([]byte, 256)
	a := NewBufAppender(buf)
	Build(a, sampleCallbacks(), DescribeApplication)

	got := string(a.Bytes())
	if !strings.Contains(got, `"temp":2`) || !strings.Contains(got, `"humidity":3`) {
		t.Errorf("document = %q, missing expected variable typecodes", got)
	}
}

func TestBuildSystemOnlyNoLeadingComma(t *testing.T) {
	buf := make([]byte, 128)
	a := NewBufAppender(buf)
	cb := Callbacks{
		SystemInfo: func(ap Appender) { ap.Append([]byte(`"s":1`)) },
	}
	Build(a, cb, DescribeSystem)

	got := string(a.Bytes())
	if got != `{"s":1}` {
		t.Errorf("document = %q, want {\"s\":1}", got)
	}
}

func TestBuildSystemAfterApplicationHasComma(t *testing.T) {
	buf := make([]byte, 256)
	a := NewBufAppender(buf)
	cb := sampleCallbacks()
	cb.SystemInfo = func(ap Appender) { ap.Append([]byte(`"sys":true`)) }
	Build(a, cb, DescribeDefault)

	got := string(a.Bytes())
	if !strings.Contains(got, `},"sys":true}`) {
		t.Errorf("document = %q, expected comma-joined system info", got)
	}
}

func TestBuildMetricsBinaryForm(t *testing.T) {
	buf := make([]byte, 64)
	a := NewBufAppender(buf)
	cb := Callbacks{
		Metrics: func(ap Appender, flags, page byte) {
			ap.Append([]byte{0xDE, 0xAD})
		},
	}
	Build(a, cb, DescribeMetrics)

	got := a.Bytes()
	want := []byte{0x00, 0x02, 0x00, 0xDE, 0xAD}
	if len(got) != len(want) {
		t.Fatalf("document = %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = 0x%X, want 0x%X", i, got[i], want[i])
		}
	}
}

func TestBuildMetricsSkippedWithoutCallback(t *testing.T) {
	buf := make([]byte, 64)
	a := NewBufAppender(buf)
	Build(a, Callbacks{}, DescribeMetrics)
	// No metrics callback: falls through to the JSON branch with
	// neither system nor application content, yielding "{}".
	if string(a.Bytes()) != "{}" {
		t.Errorf("document = %q, want {}", a.Bytes())
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	buf1 := make([]byte, 256)
	buf2 := make([]byte, 256)
	a1 := NewBufAppender(buf1)
	a2 := NewBufAppender(buf2)
	cb := sampleCallbacks()
	Build(a1, cb, DescribeApplication)
	Build(a2, cb, DescribeApplication)
	if string(a1.Bytes()) != string(a2.Bytes()) {
		t.Error("expected byte-identical documents from identical inputs")
	}
}

func TestOverflowIsReported(t *testing.T) {
	buf := make([]byte, 4)
	a := NewBufAppender(buf)
	Build(a, sampleCallbacks(), DescribeApplication)
	if !a.Overflowed() {
		t.Error("expected overflow with an undersized buffer")
	}
}

func TestSizeMatchesRealBuild(t *testing.T) {
	cb := sampleCallbacks()
	size := Size(cb, DescribeApplication)

	buf := make([]byte, size)
	a := NewBufAppender(buf)
	Build(a, cb, DescribeApplication)
	if a.Overflowed() {
		t.Errorf("Size() under-reported: buffer of computed size %d overflowed", size)
	}
	if a.Len() != size {
		t.Errorf("actual length %d != computed size %d", a.Len(), size)
	}
}
