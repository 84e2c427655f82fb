//go:build darwin && cgo

package coreaudio

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation
#include "hal_darwin.h"
*/
import "C"

import (
	"bytes"
	"fmt"
	"sync"
	"unsafe"

	"github.com/petems/micwatch/internal/device"
	"github.com/rs/zerolog"
)

const nameBufferSize = 512

// Platform is the CoreAudio HAL implementation of device.Platform.
type Platform struct {
	log zerolog.Logger

	mu     sync.Mutex
	byAddr map[device.Address]uintptr
}

// New returns a HAL-backed platform. It holds no OS resources until a
// listener is added.
func New(cfg Config) *Platform {
	return &Platform{
		log:    cfg.Logger.With().Str("backend", "coreaudio").Logger(),
		byAddr: make(map[device.Address]uintptr),
	}
}

// Open returns the HAL platform as a device.Platform.
func Open(cfg Config) (device.Platform, func() error, error) {
	p := New(cfg)
	return p, p.Close, nil
}

func (p *Platform) DeviceIDs() ([]device.ID, error) {
	var count C.UInt32
	if st := C.halDeviceCount(&count); st != 0 {
		return nil, fmt.Errorf("%w: device count: %v", device.ErrEnumeration, osStatus(st))
	}
	if count == 0 {
		return []device.ID{}, nil
	}

	raw := make([]C.AudioObjectID, count)
	if st := C.halDeviceIDs(&raw[0], &count); st != 0 {
		return nil, fmt.Errorf("%w: device list: %v", device.ErrEnumeration, osStatus(st))
	}

	ids := make([]device.ID, 0, count)
	for _, id := range raw[:count] {
		ids = append(ids, device.ID(id))
	}
	return ids, nil
}

func (p *Platform) DefaultInputDevice() (device.ID, error) {
	var id C.AudioObjectID
	if st := C.halDefaultInputDevice(&id); st != 0 {
		return device.UnknownID, fmt.Errorf("default input: %w", osStatus(st))
	}
	return device.ID(id), nil
}

func (p *Platform) InputBufferCount(id device.ID) (int, error) {
	var count C.UInt32
	if st := C.halInputBufferCount(C.AudioObjectID(id), &count); st != 0 {
		return 0, fmt.Errorf("stream configuration of %d: %w", id, osStatus(st))
	}
	return int(count), nil
}

func (p *Platform) TransportCode(id device.ID) (device.TransportCode, error) {
	var code C.UInt32
	if st := C.halTransportType(C.AudioObjectID(id), &code); st != 0 {
		return device.TransportCodeUnknown, fmt.Errorf("transport of %d: %w", id, osStatus(st))
	}
	return device.TransportCode(code), nil
}

func (p *Platform) Name(id device.ID) (string, error) {
	buf := make([]byte, nameBufferSize)
	st := C.halDeviceName(C.AudioObjectID(id), (*C.char)(unsafe.Pointer(&buf[0])), C.UInt32(len(buf)))
	if st != 0 {
		return "", fmt.Errorf("%w: device %d: %v", device.ErrNameUnavailable, id, osStatus(st))
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

func (p *Platform) HasScalarInputVolume(id device.ID) bool {
	return C.halHasScalarInputVolume(C.AudioObjectID(id)) != 0
}

func (p *Platform) ScalarInputVolume(id device.ID) (float32, error) {
	var v C.Float32
	if st := C.halScalarInputVolume(C.AudioObjectID(id), &v); st != 0 {
		return 0, fmt.Errorf("%w: device %d: %v", device.ErrVolumeRead, id, osStatus(st))
	}
	return float32(v), nil
}

func (p *Platform) HasInputDecibelRange(id device.ID) bool {
	return C.halHasInputDecibelRange(C.AudioObjectID(id)) != 0
}

func halProperty(prop device.Property) (C.int, error) {
	switch prop {
	case device.PropertyDefaultInput:
		return C.HAL_PROP_DEFAULT_INPUT, nil
	case device.PropertyDevices:
		return C.HAL_PROP_DEVICES, nil
	case device.PropertyInputVolume:
		return C.HAL_PROP_INPUT_VOLUME, nil
	default:
		return 0, fmt.Errorf("%w: %s", device.ErrNoProperty, prop)
	}
}

// AddListener installs a HAL property listener for addr. The handle passed
// to CoreAudio is kept so RemoveListener can present the same client data.
func (p *Platform) AddListener(addr device.Address, fn device.ListenerFunc) error {
	prop, err := halProperty(addr.Property)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", device.ErrListenerRegistration, addr, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byAddr[addr]; ok {
		return fmt.Errorf("%w: %s already registered", device.ErrListenerRegistration, addr)
	}

	h := handles.add(addr, fn)
	if st := C.halAddListener(C.AudioObjectID(addr.Object), prop, C.uintptr_t(h)); st != 0 {
		handles.remove(h)
		return fmt.Errorf("%w: %s: %v", device.ErrListenerRegistration, addr, osStatus(st))
	}
	p.byAddr[addr] = h
	p.log.Debug().Stringer("addr", addr).Uint64("handle", uint64(h)).Msg("listener added")
	return nil
}

func (p *Platform) RemoveListener(addr device.Address) error {
	prop, err := halProperty(addr.Property)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", device.ErrListenerRegistration, addr, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.byAddr[addr]
	if !ok {
		return fmt.Errorf("%w: %s not registered", device.ErrListenerRegistration, addr)
	}
	delete(p.byAddr, addr)

	st := C.halRemoveListener(C.AudioObjectID(addr.Object), prop, C.uintptr_t(h))
	handles.remove(h)
	if st != 0 {
		return fmt.Errorf("%w: %s: %v", device.ErrListenerRegistration, addr, osStatus(st))
	}
	p.log.Debug().Stringer("addr", addr).Uint64("handle", uint64(h)).Msg("listener removed")
	return nil
}

// Close removes any listener still installed.
func (p *Platform) Close() error {
	p.mu.Lock()
	addrs := make([]device.Address, 0, len(p.byAddr))
	for addr := range p.byAddr {
		addrs = append(addrs, addr)
	}
	p.mu.Unlock()

	var firstErr error
	for _, addr := range addrs {
		if err := p.RemoveListener(addr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

//export goHALPropertyChanged
func goHALPropertyChanged(handle C.uintptr_t) {
	handles.dispatch(uintptr(handle))
}
