//go:build !(js && wasm)

package host

import (
	"sync"
	"time"
)

var global = sync.OnceValue(func() Host {
	return newNative(time.Now())
})

// Global returns a host emulated on the operating system clocks. Its timer
// origin is the first call to Global.
func Global() Host {
	return global()
}

// native emulates a browser host. The timer reads the Go monotonic clock
// relative to anchor, the wall clock reads the system time.
type native struct {
	anchor time.Time
	origin float64
}

func newNative(anchor time.Time) *native {
	return &native{
		anchor: anchor,
		origin: float64(anchor.UnixNano()) / float64(time.Millisecond),
	}
}

func (n *native) Performance() (Performance, bool) {
	return nativePerformance{n}, true
}

func (n *native) Date() Date {
	return nativeDate{}
}

type nativePerformance struct {
	n *native
}

func (p nativePerformance) Now() float64 {
	return float64(time.Since(p.n.anchor)) / float64(time.Millisecond)
}

func (p nativePerformance) TimeOrigin() float64 {
	return p.n.origin
}

type nativeDate struct{}

func (nativeDate) Now() float64 {
	return float64(time.Now().UnixMilli())
}
