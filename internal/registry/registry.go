// Package registry implements channel.DescriptorCallbacks: the
// function/variable/event registration surface an application
// populates and the protocol engine reads from when it builds a
// describe document or dispatches an incoming call. Registration uses
// sync.Map, mirroring device_manager's tokenCache — app code can
// register functions and variables from any goroutine, even though
// the protocol engine itself only ever reads them from its own
// single-threaded event loop.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nhirsama/deviceproto/internal/channel"
	"github.com/nhirsama/deviceproto/internal/describe"
	"github.com/nhirsama/deviceproto/internal/protoerr"
)

// VariableType is the raw type code describe.Build turns into an
// ASCII digit ('0'+typ) in the JSON document.
type VariableType byte

const (
	TypeInt    VariableType = 2
	TypeString VariableType = 4
	TypeDouble VariableType = 9
	TypeBool   VariableType = 5
)

type function struct {
	name string
	call func(args []byte) ([]byte, error)
}

type variable struct {
	name    string
	typ     VariableType
	read    func() []byte
}

// Registry is the application-facing side of the descriptor callback
// surface: register functions/variables/event handlers here, then
// hand *Registry to engine.New as its channel.DescriptorCallbacks.
type Registry struct {
	functions sync.Map // string -> function
	variables sync.Map // string -> variable
	events    sync.Map // string -> func([]byte) error

	crc          CRCSource
	crcCache     sync.Map // channel.Selector -> uint32
	systemInfo   func(a describe.Appender)
	metrics      func(a describe.Appender, flags byte, page byte)
	wasOTAOK     func() bool
}

// CRCSource computes a CRC over an arbitrary buffer, matching
// channel.Platform.CalculateCRC's signature without importing the
// whole Platform interface here.
type CRCSource interface {
	CalculateCRC(buf []byte) uint32
}

// New returns an empty Registry backed by crc for its composite CRCs.
func New(crc CRCSource) *Registry {
	return &Registry{crc: crc}
}

// SetSystemInfo installs the callback the describe document's system
// section is built from.
func (r *Registry) SetSystemInfo(fn func(a describe.Appender)) { r.systemInfo = fn }

// SetMetrics installs the binary metrics callback.
func (r *Registry) SetMetrics(fn func(a describe.Appender, flags byte, page byte)) { r.metrics = fn }

// SetOTAStatus stores the callback reporting whether the last OTA
// attempt succeeded. Registry does not call it; the HELLO flags take
// the OTA status from channel.Platform.WasOTAUpgradeSuccessful.
func (r *Registry) SetOTAStatus(fn func() bool) { r.wasOTAOK = fn }

// RegisterFunction exposes name to CallFunction and to the describe
// document's function list.
func (r *Registry) RegisterFunction(name string, call func(args []byte) ([]byte, error)) {
	r.functions.Store(name, function{name: name, call: call})
}

// RegisterVariable exposes name to ReadVariable and to the describe
// document's variable list.
func (r *Registry) RegisterVariable(name string, typ VariableType, read func() []byte) {
	r.variables.Store(name, variable{name: name, typ: typ, read: read})
}

// RegisterEventHandler installs the callback for an inbound Event
// message carrying name.
func (r *Registry) RegisterEventHandler(name string, handler func(data []byte) error) {
	r.events.Store(name, handler)
}

func (r *Registry) sortedFunctionNames() []string {
	var names []string
	r.functions.Range(func(k, _ any) bool { names = append(names, k.(string)); return true })
	sort.Strings(names)
	return names
}

func (r *Registry) sortedVariableNames() []string {
	var names []string
	r.variables.Range(func(k, _ any) bool { names = append(names, k.(string)); return true })
	sort.Strings(names)
	return names
}

// DescribeCallbacks builds the describe.Callbacks snapshot the
// describe builder consumes for one call to Build/Size. Registrations
// made after this snapshot don't affect the in-flight document —
// matching the builder's pure-function contract.
func (r *Registry) DescribeCallbacks() describe.Callbacks {
	fnNames := r.sortedFunctionNames()
	varNames := r.sortedVariableNames()

	cb := describe.Callbacks{
		NumFunctions: len(fnNames),
		FunctionKey:  func(i int) string { return fnNames[i] },
		NumVariables: len(varNames),
		VariableKey:  func(i int) string { return varNames[i] },
		VariableType: func(i int) byte {
			v, _ := r.variables.Load(varNames[i])
			return byte(v.(variable).typ)
		},
	}
	if r.systemInfo != nil {
		cb.SystemInfo = r.systemInfo
	}
	if r.metrics != nil {
		cb.Metrics = r.metrics
	}
	return cb
}

// CallFunction invokes the registered function named name. An unknown
// name returns Err4xx, matching the reply-class translation a real
// device would produce for "no such function".
func (r *Registry) CallFunction(token []byte, name string, args []byte) ([]byte, error) {
	v, ok := r.functions.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown function %q", protoerr.Err4xx, name)
	}
	return v.(function).call(args)
}

// ReadVariable reads the registered variable named name.
func (r *Registry) ReadVariable(token []byte, name string) ([]byte, error) {
	v, ok := r.variables.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown variable %q", protoerr.Err4xx, name)
	}
	return v.(variable).read(), nil
}

// CallEventHandler invokes the registered handler for an inbound
// event, if any is registered; an unregistered event name is dropped
// silently, matching the dispatch engine's drop-on-floor contract for
// requests nobody is listening for.
func (r *Registry) CallEventHandler(name string, data []byte) error {
	v, ok := r.events.Load(name)
	if !ok {
		return nil
	}
	return v.(func([]byte) error)(data)
}

// AppStateSelectorInfo computes (and optionally persists) the CRC for
// selector. Compute always recomputes from current registration state;
// Persist stores value in the registry's CRC cache; ComputeAndPersist
// does both. Compute never reads the cache.
func (r *Registry) AppStateSelectorInfo(selector channel.Selector, op channel.SelectorOp, value uint32, extra []byte) (uint32, error) {
	var crc uint32
	if op == channel.OpPersist {
		crc = value
	} else {
		crc = r.compute(selector)
	}
	if op == channel.OpPersist || op == channel.OpComputeAndPersist {
		r.crcCache.Store(selector, crc)
	}
	return crc, nil
}

func (r *Registry) compute(selector channel.Selector) uint32 {
	switch selector {
	case channel.SelectorSystemDescribe:
		return r.crc.CalculateCRC([]byte("system"))
	case channel.SelectorAppDescribe:
		buf := describe.NewBufAppender(make([]byte, 4096))
		describe.Build(buf, r.DescribeCallbacks(), describe.DescribeApplication)
		return r.crc.CalculateCRC(buf.Bytes())
	case channel.SelectorSubscriptions:
		var names []string
		r.events.Range(func(k, _ any) bool { names = append(names, k.(string)); return true })
		sort.Strings(names)
		buf := make([]byte, 0, 64)
		for _, n := range names {
			buf = append(buf, n...)
			buf = append(buf, 0)
		}
		return r.crc.CalculateCRC(buf)
	default:
		return 0
	}
}
