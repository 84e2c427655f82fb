package device

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEnumeration is returned by a platform when the device list cannot be read.
	ErrEnumeration = errors.New("device enumeration failed")
	// ErrNameUnavailable is returned when a device has no readable name.
	ErrNameUnavailable = errors.New("device name unavailable")
	// ErrListenerRegistration is returned when a property listener cannot be added or removed.
	ErrListenerRegistration = errors.New("listener registration failed")
	// ErrVolumeRead is returned when a volume control exists but cannot be read.
	ErrVolumeRead = errors.New("volume read failed")
	// ErrNoProperty is returned when a device does not expose the requested property.
	ErrNoProperty = errors.New("property not present")
	// ErrUnsupported is returned by backends that cannot run on this host.
	ErrUnsupported = errors.New("backend not supported on this platform")
)

// ID is an opaque platform device handle. It is only meaningful for the
// lifetime of the current boot and must not be persisted.
type ID uint32

// UnknownID is the platform's "no object" value. No real device uses it.
const UnknownID ID = 0

// SystemObject is the object that owns the device list and the default
// device properties.
const SystemObject ID = 1

// Record describes one physical input device at the time of enumeration.
type Record struct {
	ID             ID            `json:"deviceID"`
	Name           string        `json:"name"`
	IsDefaultInput bool          `json:"isDefault"`
	Transport      TransportKind `json:"type"`
	InputVolume    float32       `json:"volume"`
}

func (r Record) String() string {
	def := ""
	if r.IsDefaultInput {
		def = " (default)"
	}
	return fmt.Sprintf("%s [%s, %d%%]%s", r.Name, r.Transport, int(r.InputVolume*100+0.5), def)
}

// Snapshot is the input device topology in platform enumeration order.
type Snapshot []Record

// Default returns the record flagged as the default input, if any.
func (s Snapshot) Default() (Record, bool) {
	for _, r := range s {
		if r.IsDefaultInput {
			return r, true
		}
	}
	return Record{}, false
}

// ByTransport returns the records of the given transport, preserving order.
func (s Snapshot) ByTransport(kind TransportKind) Snapshot {
	out := Snapshot{}
	for _, r := range s {
		if r.Transport == kind {
			out = append(out, r)
		}
	}
	return out
}

// Equal reports whether both snapshots hold the same records in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s Snapshot) String() string {
	if len(s) == 0 {
		return "no input devices"
	}
	lines := make([]string, 0, len(s))
	for _, r := range s {
		lines = append(lines, r.String())
	}
	return strings.Join(lines, "\n")
}

// Property names one of the hardware properties the monitor listens on.
type Property int

const (
	// PropertyDefaultInput changes when the OS picks another default input.
	PropertyDefaultInput Property = iota
	// PropertyDevices changes when devices are added or removed.
	PropertyDevices
	// PropertyInputVolume changes when a device's input volume moves.
	PropertyInputVolume
)

func (p Property) String() string {
	switch p {
	case PropertyDefaultInput:
		return "default-input"
	case PropertyDevices:
		return "devices"
	case PropertyInputVolume:
		return "input-volume"
	default:
		return fmt.Sprintf("property(%d)", int(p))
	}
}

// Address identifies a listenable property on a platform object.
type Address struct {
	Object   ID
	Property Property
}

func (a Address) String() string {
	return fmt.Sprintf("%s@%d", a.Property, a.Object)
}

// ListenerFunc is invoked by a platform when the property at addr may have
// changed. It can run on any goroutine or OS thread.
type ListenerFunc func(addr Address)

// VolumeProbe exposes the input volume controls of a device.
type VolumeProbe interface {
	HasScalarInputVolume(id ID) bool
	ScalarInputVolume(id ID) (float32, error)
	HasInputDecibelRange(id ID) bool
}

// Platform is the read-only view of the host audio subsystem.
type Platform interface {
	VolumeProbe

	// DeviceIDs returns every audio device in platform order.
	DeviceIDs() ([]ID, error)
	// DefaultInputDevice returns the current default input, or UnknownID.
	DefaultInputDevice() (ID, error)
	// InputBufferCount returns the number of buffers in the device's
	// input-scope stream configuration.
	InputBufferCount(id ID) (int, error)
	TransportCode(id ID) (TransportCode, error)
	Name(id ID) (string, error)

	// AddListener registers fn for addr. Each successful AddListener must be
	// paired with exactly one RemoveListener for the same address.
	AddListener(addr Address, fn ListenerFunc) error
	RemoveListener(addr Address) error
}
