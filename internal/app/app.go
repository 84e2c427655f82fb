package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/petems/micwatch/internal/device"
	"github.com/petems/micwatch/internal/monitor"
	"github.com/rs/zerolog"
)

// ErrSuperseded is returned by Run when another subscriber took over the
// device channel.
var ErrSuperseded = errors.New("device subscription superseded")

// Monitor is the part of monitor.Monitor the app consumes.
type Monitor interface {
	SubscribeDevices() *monitor.Subscription[device.Snapshot]
	SubscribeAudio() *monitor.Subscription[monitor.AudioEvent]
	CancelDevices(sub *monitor.Subscription[device.Snapshot])
	CancelAudio(sub *monitor.Subscription[monitor.AudioEvent])
	Devices() device.Snapshot
}

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetDevices(snap device.Snapshot)
}

type Config struct {
	Monitor       Monitor
	Output        io.Writer     // Optional - nil discards
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

type App struct {
	mon    Monitor
	out    io.Writer
	log    zerolog.Logger
	status StatusUpdater

	mu      sync.Mutex
	latest  device.Snapshot
	running bool
}

type deviceLine struct {
	Channel monitor.Channel `json:"channel"`
	Devices device.Snapshot `json:"devices"`
}

type audioLine struct {
	Channel monitor.Channel    `json:"channel"`
	Event   monitor.AudioEvent `json:"event"`
}

func New(cfg Config) *App {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return &App{
		mon:    cfg.Monitor,
		out:    out,
		log:    cfg.Logger,
		status: cfg.StatusUpdater,
	}
}

// Run subscribes to both channels and writes every delivery as one JSON
// line until ctx is done. Only one Run may be active at a time.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	devices := a.mon.SubscribeDevices()
	audio := a.mon.SubscribeAudio()
	audioC := audio.C()
	a.log.Info().Stringer("subscription", devices.ID).Msg("Watching microphones")

	enc := json.NewEncoder(a.out)
	for {
		select {
		case <-ctx.Done():
			a.mon.CancelDevices(devices)
			a.mon.CancelAudio(audio)
			a.log.Info().Msg("Stopped watching microphones")
			return nil

		case snap, ok := <-devices.C():
			if !ok {
				// Only our own audio subscription is released; a newer
				// consumer keeps both slots.
				a.mon.CancelAudio(audio)
				return ErrSuperseded
			}
			a.handleSnapshot(enc, snap)

		case ev, ok := <-audioC:
			if !ok {
				audioC = nil
				continue
			}
			if err := enc.Encode(audioLine{Channel: monitor.AudioChannel, Event: ev}); err != nil {
				a.log.Error().Err(err).Msg("Write error")
			}
		}
	}
}

func (a *App) handleSnapshot(enc *json.Encoder, snap device.Snapshot) {
	if snap == nil {
		snap = device.Snapshot{}
	}

	a.mu.Lock()
	changed := !a.latest.Equal(snap) || a.latest == nil
	a.latest = snap
	a.mu.Unlock()

	if def, ok := snap.Default(); ok {
		a.log.Debug().Int("devices", len(snap)).Str("default", def.Name).Msg("Snapshot")
	} else {
		a.log.Debug().Int("devices", len(snap)).Msg("Snapshot without default input")
	}

	if err := enc.Encode(deviceLine{Channel: monitor.DeviceChannel, Devices: snap}); err != nil {
		a.log.Error().Err(err).Msg("Write error")
	}
	if changed && a.status != nil {
		a.status.SetDevices(snap)
	}
}

// Latest returns the most recent snapshot Run has received, or nil.
func (a *App) Latest() device.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// ListDevices returns a point-in-time snapshot without subscribing.
func (a *App) ListDevices() device.Snapshot {
	return a.mon.Devices()
}
