//go:build js && wasm

package host

import (
	"sync"
	"syscall/js"
)

var global = sync.OnceValue(func() Host {
	g := js.Global()
	return &jsHost{
		perf: g.Get("performance"),
		date: g.Get("Date"),
	}
})

// Global returns the host of the running JavaScript context.
func Global() Host {
	return global()
}

type jsHost struct {
	perf js.Value
	date js.Value
}

func (h *jsHost) Performance() (Performance, bool) {
	if h.perf.IsUndefined() || h.perf.IsNull() {
		return nil, false
	}
	return jsPerformance{h.perf}, true
}

func (h *jsHost) Date() Date {
	return jsDate{h.date}
}

type jsPerformance struct {
	v js.Value
}

func (p jsPerformance) Now() float64 {
	return p.v.Call("now").Float()
}

func (p jsPerformance) TimeOrigin() float64 {
	return p.v.Get("timeOrigin").Float()
}

type jsDate struct {
	v js.Value
}

func (d jsDate) Now() float64 {
	return d.v.Call("now").Float()
}
