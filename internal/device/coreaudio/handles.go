// Package coreaudio reads input devices from the macOS CoreAudio HAL.
package coreaudio

import (
	"fmt"
	"sync/atomic"

	"github.com/petems/micwatch/internal/device"
	"github.com/puzpuzpuz/xsync/v3"
)

// HAL callbacks carry an integer handle as their client data. The handle is
// resolved here, so no Go pointer crosses into C and a callback that
// arrives after removal finds nothing.
type listener struct {
	addr device.Address
	fn   device.ListenerFunc
}

type registry struct {
	next    atomic.Uintptr
	entries *xsync.MapOf[uintptr, listener]
}

func newRegistry() *registry {
	return &registry{entries: xsync.NewMapOf[uintptr, listener]()}
}

var handles = newRegistry()

func (r *registry) add(addr device.Address, fn device.ListenerFunc) uintptr {
	h := r.next.Add(1)
	r.entries.Store(h, listener{addr: addr, fn: fn})
	return h
}

func (r *registry) remove(h uintptr) bool {
	_, ok := r.entries.LoadAndDelete(h)
	return ok
}

// dispatch runs the listener behind h. It reports false for unknown or
// already removed handles.
func (r *registry) dispatch(h uintptr) bool {
	l, ok := r.entries.Load(h)
	if !ok {
		return false
	}
	l.fn(l.addr)
	return true
}

func (r *registry) size() int {
	return r.entries.Size()
}

// osStatus renders a HAL status code. Most are four-char codes.
type osStatus int32

func (s osStatus) String() string {
	u := uint32(s)
	b := []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("%d", int32(s))
		}
	}
	return fmt.Sprintf("'%s'", b)
}

func (s osStatus) Error() string {
	return "OSStatus " + s.String()
}
