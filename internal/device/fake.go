package device

import (
	"fmt"
	"sync"
)

// FakeDevice describes one device of a Fake platform.
type FakeDevice struct {
	ID           ID
	Name         string
	NameErr      bool
	Transport    TransportCode
	InputBuffers int

	HasScalarVolume bool
	Volume          float32
	VolumeErr       bool
	HasDecibelRange bool
}

// Fake is an in-memory Platform. It backs the tests and the "fake" demo
// backend, and counts listener registrations per address.
type Fake struct {
	mu         sync.Mutex
	devices    []FakeDevice
	defaultID  ID
	enumErr    error
	defaultErr error
	failAdd    map[Property]bool

	listeners map[Address]ListenerFunc
	adds      map[Address]int
	removes   map[Address]int
	queries   int
}

// NewFake creates a Fake platform holding devs, with def as default input.
func NewFake(def ID, devs ...FakeDevice) *Fake {
	return &Fake{
		devices:   append([]FakeDevice(nil), devs...),
		defaultID: def,
		failAdd:   make(map[Property]bool),
		listeners: make(map[Address]ListenerFunc),
		adds:      make(map[Address]int),
		removes:   make(map[Address]int),
	}
}

// SetDevices replaces the device list.
func (f *Fake) SetDevices(devs ...FakeDevice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append([]FakeDevice(nil), devs...)
}

// SetDefault changes the default input device.
func (f *Fake) SetDefault(id ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultID = id
}

// SetVolume changes the scalar volume of id.
func (f *Fake) SetVolume(id ID, v float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.devices {
		if f.devices[i].ID == id {
			f.devices[i].HasScalarVolume = true
			f.devices[i].Volume = v
		}
	}
}

// FailEnumeration makes DeviceIDs return err until cleared with nil.
func (f *Fake) FailEnumeration(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enumErr = err
}

// FailDefault makes DefaultInputDevice return err until cleared with nil.
func (f *Fake) FailDefault(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultErr = err
}

// FailAddListener makes AddListener fail for prop.
func (f *Fake) FailAddListener(prop Property, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAdd[prop] = fail
}

// Fire invokes the listener registered at addr, as the OS would. It
// reports whether a listener was registered.
func (f *Fake) Fire(addr Address) bool {
	f.mu.Lock()
	fn := f.listeners[addr]
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(addr)
	return true
}

// Listening returns the addresses with a registered listener.
func (f *Fake) Listening() []Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Address, 0, len(f.listeners))
	for addr := range f.listeners {
		out = append(out, addr)
	}
	return out
}

// Registrations returns the total AddListener and RemoveListener calls that
// succeeded.
func (f *Fake) Registrations() (adds, removes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.adds {
		adds += n
	}
	for _, n := range f.removes {
		removes += n
	}
	return adds, removes
}

// RegistrationsAt returns the AddListener and RemoveListener counts for addr.
func (f *Fake) RegistrationsAt(addr Address) (adds, removes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds[addr], f.removes[addr]
}

// Queries returns how many times the device list was read.
func (f *Fake) Queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *Fake) lookup(id ID) (FakeDevice, error) {
	for _, d := range f.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return FakeDevice{}, fmt.Errorf("device %d: %w", id, ErrNoProperty)
}

func (f *Fake) DeviceIDs() ([]ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.enumErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, f.enumErr)
	}
	ids := make([]ID, 0, len(f.devices))
	for _, d := range f.devices {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (f *Fake) DefaultInputDevice() (ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defaultErr != nil {
		return UnknownID, f.defaultErr
	}
	return f.defaultID, nil
}

func (f *Fake) InputBufferCount(id ID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.lookup(id)
	if err != nil {
		return 0, err
	}
	return d.InputBuffers, nil
}

func (f *Fake) TransportCode(id ID) (TransportCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.lookup(id)
	if err != nil {
		return TransportCodeUnknown, err
	}
	return d.Transport, nil
}

func (f *Fake) Name(id ID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.lookup(id)
	if err != nil {
		return "", err
	}
	if d.NameErr {
		return "", fmt.Errorf("device %d: %w", id, ErrNameUnavailable)
	}
	return d.Name, nil
}

func (f *Fake) HasScalarInputVolume(id ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.lookup(id)
	return err == nil && d.HasScalarVolume
}

func (f *Fake) ScalarInputVolume(id ID) (float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.lookup(id)
	if err != nil {
		return 0, err
	}
	if !d.HasScalarVolume {
		return 0, fmt.Errorf("device %d: %w", id, ErrNoProperty)
	}
	if d.VolumeErr {
		return 0, fmt.Errorf("device %d: %w", id, ErrVolumeRead)
	}
	return d.Volume, nil
}

func (f *Fake) HasInputDecibelRange(id ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.lookup(id)
	return err == nil && d.HasDecibelRange
}

func (f *Fake) AddListener(addr Address, fn ListenerFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd[addr.Property] {
		return fmt.Errorf("%s: %w", addr, ErrListenerRegistration)
	}
	if _, ok := f.listeners[addr]; ok {
		return fmt.Errorf("%s already registered: %w", addr, ErrListenerRegistration)
	}
	f.listeners[addr] = fn
	f.adds[addr]++
	return nil
}

func (f *Fake) RemoveListener(addr Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listeners[addr]; !ok {
		return fmt.Errorf("%s not registered: %w", addr, ErrListenerRegistration)
	}
	delete(f.listeners, addr)
	f.removes[addr]++
	return nil
}

// DemoDevices is the device set served by the "fake" backend.
func DemoDevices() (ID, []FakeDevice) {
	return 3, []FakeDevice{
		{ID: 1, Name: "MacBook Pro Microphone", Transport: TransportCodeBuiltIn, InputBuffers: 1, HasScalarVolume: true, Volume: 0.75},
		{ID: 2, Name: "Loopback Audio", Transport: TransportCodeVirtual, InputBuffers: 1},
		{ID: 3, Name: "USB Audio Interface", Transport: TransportCodeUSB, InputBuffers: 2, HasScalarVolume: true, Volume: 0.4},
		{ID: 4, Name: "AirPods Pro", Transport: TransportCodeBluetooth, InputBuffers: 1, HasDecibelRange: true},
		{ID: 5, Name: "Studio Display Speakers", Transport: TransportCodeDisplayPort},
	}
}
