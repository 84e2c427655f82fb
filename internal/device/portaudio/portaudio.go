// Package portaudio is the cross-platform device backend. It reads the
// PortAudio device table and detects changes by polling.
package portaudio

import (
	"fmt"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"
	"github.com/petems/micwatch/internal/device"
	"github.com/rs/zerolog"
)

const (
	DefaultPollInterval = time.Second
	MinPollInterval     = 100 * time.Millisecond
)

// Config holds the PortAudio platform settings.
type Config struct {
	PollInterval time.Duration
	Logger       zerolog.Logger
}

type deviceInfo struct {
	name   string
	inputs int
}

type inventory struct {
	devices     []deviceInfo
	defaultName string
}

func (inv inventory) sameDevices(other inventory) bool {
	if len(inv.devices) != len(other.devices) {
		return false
	}
	for i := range inv.devices {
		if inv.devices[i] != other.devices[i] {
			return false
		}
	}
	return true
}

type scanFunc func(rescan bool) (inventory, error)

// Platform implements device.Platform over PortAudio. Device IDs are
// positions in the last scanned device table, starting at 1.
type Platform struct {
	log      zerolog.Logger
	interval time.Duration
	scan     scanFunc

	mu        sync.Mutex
	inv       inventory
	scanErr   error
	listeners map[device.Address]device.ListenerFunc
	stop      chan struct{}
	done      chan struct{}
}

// Open initializes PortAudio and reads the device table once.
func Open(cfg Config) (*Platform, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	p := newPlatform(cfg, scanPortAudio)
	if _, err := p.poll(false); err != nil {
		p.log.Warn().Err(err).Msg("initial device scan failed")
	}
	return p, nil
}

func newPlatform(cfg Config, scan scanFunc) *Platform {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	return &Platform{
		log:       cfg.Logger.With().Str("backend", "portaudio").Logger(),
		interval:  interval,
		scan:      scan,
		listeners: make(map[device.Address]device.ListenerFunc),
	}
}

// scanPortAudio reads the device table. With rescan set, PortAudio is
// restarted first; it only enumerates hardware at initialization.
func scanPortAudio(rescan bool) (inventory, error) {
	if rescan {
		if err := pa.Terminate(); err != nil {
			return inventory{}, fmt.Errorf("terminate: %w", err)
		}
		if err := pa.Initialize(); err != nil {
			return inventory{}, fmt.Errorf("initialize: %w", err)
		}
	}

	devices, err := pa.Devices()
	if err != nil {
		return inventory{}, err
	}
	inv := inventory{devices: make([]deviceInfo, 0, len(devices))}
	for _, d := range devices {
		inv.devices = append(inv.devices, deviceInfo{name: d.Name, inputs: d.MaxInputChannels})
	}
	if def, err := pa.DefaultInputDevice(); err == nil && def != nil {
		inv.defaultName = def.Name
	}
	return inv, nil
}

// poll refreshes the device table and returns the listeners whose
// property changed since the previous scan.
func (p *Platform) poll(restart bool) ([]fired, error) {
	inv, err := p.scan(restart)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.scanErr = err
		return nil, err
	}
	prev := p.inv
	p.inv = inv
	p.scanErr = nil

	var out []fired
	if !prev.sameDevices(inv) {
		out = p.appendFired(out, device.PropertyDevices)
	}
	if prev.defaultName != inv.defaultName {
		out = p.appendFired(out, device.PropertyDefaultInput)
	}
	return out, nil
}

type fired struct {
	addr device.Address
	fn   device.ListenerFunc
}

func (p *Platform) appendFired(out []fired, prop device.Property) []fired {
	addr := device.Address{Object: device.SystemObject, Property: prop}
	if fn, ok := p.listeners[addr]; ok {
		out = append(out, fired{addr: addr, fn: fn})
	}
	return out
}

func (p *Platform) lookup(id device.ID) (deviceInfo, error) {
	idx := int(id) - 1
	if idx < 0 || idx >= len(p.inv.devices) {
		return deviceInfo{}, fmt.Errorf("%w: device %d", device.ErrNoProperty, id)
	}
	return p.inv.devices[idx], nil
}

func (p *Platform) DeviceIDs() ([]device.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scanErr != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrEnumeration, p.scanErr)
	}
	ids := make([]device.ID, len(p.inv.devices))
	for i := range p.inv.devices {
		ids[i] = device.ID(i + 1)
	}
	return ids, nil
}

func (p *Platform) DefaultInputDevice() (device.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inv.defaultName == "" {
		return device.UnknownID, nil
	}
	for i, d := range p.inv.devices {
		if d.name == p.inv.defaultName && d.inputs > 0 {
			return device.ID(i + 1), nil
		}
	}
	return device.UnknownID, nil
}

func (p *Platform) InputBufferCount(id device.ID) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, err := p.lookup(id)
	if err != nil {
		return 0, err
	}
	if d.inputs > 0 {
		return 1, nil
	}
	return 0, nil
}

func (p *Platform) TransportCode(id device.ID) (device.TransportCode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, err := p.lookup(id)
	if err != nil {
		return device.TransportCodeUnknown, err
	}
	return guessTransport(d.name), nil
}

func (p *Platform) Name(id device.ID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, err := p.lookup(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", device.ErrNameUnavailable, err)
	}
	if d.name == "" {
		return "", fmt.Errorf("%w: device %d", device.ErrNameUnavailable, id)
	}
	return d.name, nil
}

// PortAudio exposes no mixer controls.
func (p *Platform) HasScalarInputVolume(device.ID) bool { return false }

func (p *Platform) ScalarInputVolume(id device.ID) (float32, error) {
	return 0, fmt.Errorf("%w: input volume of %d", device.ErrNoProperty, id)
}

func (p *Platform) HasInputDecibelRange(device.ID) bool { return false }

// AddListener registers fn. Input volume listeners are accepted but never
// fire. The poller runs while at least one listener is registered.
func (p *Platform) AddListener(addr device.Address, fn device.ListenerFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.listeners[addr]; ok {
		return fmt.Errorf("%w: %s already registered", device.ErrListenerRegistration, addr)
	}
	p.listeners[addr] = fn
	if p.stop == nil {
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		go p.watch(p.stop, p.done)
		p.log.Debug().Dur("interval", p.interval).Msg("device poller started")
	}
	return nil
}

func (p *Platform) RemoveListener(addr device.Address) error {
	p.mu.Lock()
	if _, ok := p.listeners[addr]; !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s not registered", device.ErrListenerRegistration, addr)
	}
	delete(p.listeners, addr)
	var stop, done chan struct{}
	if len(p.listeners) == 0 && p.stop != nil {
		stop, done = p.stop, p.done
		p.stop, p.done = nil, nil
	}
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
		p.log.Debug().Msg("device poller stopped")
	}
	return nil
}

func (p *Platform) watch(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			changed, err := p.poll(true)
			if err != nil {
				p.log.Warn().Err(err).Msg("device scan failed")
				continue
			}
			for _, f := range changed {
				p.log.Debug().Stringer("addr", f.addr).Msg("device table changed")
				f.fn(f.addr)
			}
		}
	}
}

// Close stops the poller and shuts PortAudio down.
func (p *Platform) Close() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.listeners = make(map[device.Address]device.ListenerFunc)
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return pa.Terminate()
}
