// Package backend picks the device platform named in the configuration.
package backend

import (
	"fmt"
	"runtime"

	"github.com/petems/micwatch/internal/config"
	"github.com/petems/micwatch/internal/device"
	"github.com/petems/micwatch/internal/device/coreaudio"
	"github.com/petems/micwatch/internal/device/portaudio"
	"github.com/rs/zerolog"
)

// Backend is an opened platform together with its release function.
type Backend struct {
	device.Platform
	Name    string
	closeFn func() error
}

// Close releases the platform. It is safe to call more than once.
func (b *Backend) Close() error {
	if b.closeFn == nil {
		return nil
	}
	fn := b.closeFn
	b.closeFn = nil
	return fn()
}

// Resolve maps "auto" onto the native backend for goos.
func Resolve(name, goos string) string {
	if name != config.BackendAuto {
		return name
	}
	if goos == "darwin" {
		return config.BackendCoreAudio
	}
	return config.BackendPortAudio
}

// Open starts the backend selected by cfg.
func Open(cfg *config.Config, log zerolog.Logger) (*Backend, error) {
	name := Resolve(cfg.Backend, runtime.GOOS)
	log.Info().Str("backend", name).Msg("Opening device backend")

	switch name {
	case config.BackendCoreAudio:
		p, closeFn, err := coreaudio.Open(coreaudio.Config{Logger: log})
		if err != nil {
			return nil, err
		}
		return &Backend{Platform: p, Name: name, closeFn: closeFn}, nil

	case config.BackendPortAudio:
		p, err := portaudio.Open(portaudio.Config{PollInterval: cfg.PollInterval, Logger: log})
		if err != nil {
			return nil, err
		}
		return &Backend{Platform: p, Name: name, closeFn: p.Close}, nil

	case config.BackendFake:
		def, devs := device.DemoDevices()
		return &Backend{Platform: device.NewFake(def, devs...), Name: name}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
