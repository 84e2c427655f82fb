package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/petems/micwatch/internal/device"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const audioBuffer = 16

// State is the listening state of the device channel.
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Config configures a Monitor.
type Config struct {
	Platform  device.Platform
	Logger    zerolog.Logger
	QueueSize int
}

// Monitor is the subscription registry. It owns one subscriber slot per
// channel, the platform listeners behind the device channel, and the
// delivery queue every subscriber is served from.
type Monitor struct {
	platform device.Platform
	query    *device.Querier
	log      zerolog.Logger
	queue    *Queue

	devices *sink[device.Snapshot]
	audio   *sink[AudioEvent]

	mu        sync.Mutex
	state     State
	listeners *listenerSet
	closed    bool

	listening atomic.Bool
	dirty     atomic.Bool
	gen       atomic.Uint64
	refreshes singleflight.Group
}

type generation struct {
	seq  uint64
	snap device.Snapshot
}

// New creates a Monitor and starts its delivery queue.
func New(cfg Config) *Monitor {
	q := NewQueue(cfg.QueueSize)
	q.Start()

	return &Monitor{
		platform:  cfg.Platform,
		query:     device.NewQuerier(cfg.Platform, cfg.Logger),
		log:       cfg.Logger,
		queue:     q,
		devices:   newSink[device.Snapshot](DeviceChannel, 1, q, cfg.Logger),
		audio:     newSink[AudioEvent](AudioChannel, audioBuffer, q, cfg.Logger),
		listeners: &listenerSet{platform: cfg.Platform, log: cfg.Logger},
	}
}

// SubscribeDevices makes the caller the device channel's subscriber. The
// first snapshot is computed before returning and delivered asynchronously;
// later snapshots follow hardware changes. A previous subscriber is closed
// and receives nothing further.
func (m *Monitor) SubscribeDevices() *Subscription[device.Snapshot] {
	m.mu.Lock()
	sub, prev := m.devices.attach()
	if m.closed {
		m.devices.detach()
		m.mu.Unlock()
		return sub
	}
	if prev != nil {
		m.log.Info().Stringer("previous", prev.ID).Stringer("subscription", sub.ID).Msg("Device subscriber replaced")
	} else {
		m.log.Info().Stringer("subscription", sub.ID).Msg("Started listening to microphone events")
	}

	if m.state == Idle {
		m.listeners.register(m.onChange)
		m.state = Listening
		m.listening.Store(true)
	}
	m.mu.Unlock()

	m.refresh()
	return sub
}

// SubscribeAudio makes the caller the audio channel's subscriber.
func (m *Monitor) SubscribeAudio() *Subscription[AudioEvent] {
	sub, prev := m.audio.attach()
	if prev != nil {
		m.log.Info().Stringer("previous", prev.ID).Stringer("subscription", sub.ID).Msg("Audio subscriber replaced")
	} else {
		m.log.Info().Stringer("subscription", sub.ID).Msg("Started listening to audio events")
	}
	return sub
}

// Unsubscribe clears the subscriber of ch. For the device channel it also
// removes every platform listener. Unsubscribing an idle channel is a no-op.
func (m *Monitor) Unsubscribe(ch Channel) {
	switch ch {
	case DeviceChannel:
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stopDevicesLocked(m.devices.detach())
	case AudioChannel:
		m.stopAudio(m.audio.detach())
	default:
		m.log.Warn().Str("channel", string(ch)).Msg("Unsubscribe on unknown channel")
	}
}

// CancelDevices unsubscribes sub from the device channel. It does nothing
// when sub has already been superseded, so a stale subscriber never tears
// down its successor.
func (m *Monitor) CancelDevices(sub *Subscription[device.Snapshot]) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.devices.detachIf(sub) == nil {
		return
	}
	m.stopDevicesLocked(sub)
}

// CancelAudio unsubscribes sub from the audio channel if it still owns it.
func (m *Monitor) CancelAudio(sub *Subscription[AudioEvent]) {
	if sub == nil {
		return
	}
	m.stopAudio(m.audio.detachIf(sub))
}

func (m *Monitor) stopDevicesLocked(sub *Subscription[device.Snapshot]) {
	if sub != nil {
		m.log.Info().Stringer("subscription", sub.ID).Msg("Stopped listening to microphone events")
	}
	if m.state == Listening {
		m.listening.Store(false)
		m.listeners.unregister()
		m.state = Idle
	}
}

func (m *Monitor) stopAudio(sub *Subscription[AudioEvent]) {
	if sub != nil {
		m.log.Info().Stringer("subscription", sub.ID).Msg("Stopped listening to audio events")
	}
}

// PublishAudio delivers ev to the audio channel's subscriber, if any.
func (m *Monitor) PublishAudio(ev AudioEvent) {
	m.audio.publish(ev)
}

// Devices returns a point-in-time snapshot without touching subscriptions.
func (m *Monitor) Devices() device.Snapshot {
	return m.query.EnumerateInputDevices()
}

// State returns the listening state of the device channel.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// VolumeTarget returns the device whose volume is being observed.
func (m *Monitor) VolumeTarget() (device.ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listeners.volumeTarget()
}

// Close unsubscribes every channel and stops the delivery queue. Later
// device subscriptions are closed immediately and register nothing.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.stopDevicesLocked(m.devices.detach())
	m.mu.Unlock()

	m.Unsubscribe(AudioChannel)
	m.queue.Close()
}

// onChange is the single listener behind every registered address. It may
// run on an OS thread; it re-enumerates and hands off to the queue.
func (m *Monitor) onChange(addr device.Address) {
	m.log.Debug().Stringer("address", addr).Msg("Audio change detected")
	if !m.listening.Load() {
		return
	}
	m.refresh()
}

// refresh enumerates devices and offers the result to the device sink.
// Concurrent refreshes share one enumeration; a change that lands while an
// enumeration is running triggers another one.
func (m *Monitor) refresh() {
	m.dirty.Store(true)
	for m.dirty.Load() {
		v, _, _ := m.refreshes.Do("devices", func() (interface{}, error) {
			m.dirty.Store(false)
			seq := m.gen.Add(1)
			return generation{seq: seq, snap: m.query.EnumerateInputDevices()}, nil
		})
		g := v.(generation)
		m.devices.offer(g.seq, g.snap)
	}
}
