package monitor

import (
	"fmt"

	"github.com/petems/micwatch/internal/device"
	"github.com/rs/zerolog"
)

// listenerSet registers the three listener classes behind one callback and
// remembers exactly what it registered, so removal pairs 1:1 with addition.
type listenerSet struct {
	platform   device.Platform
	log        zerolog.Logger
	registered []device.Address
}

// register adds the default-input, device-list and input-volume listeners.
// The volume listener targets the default input at the time of the call.
// A failure is logged and the remaining listeners are still attempted.
func (l *listenerSet) register(fn device.ListenerFunc) {
	addrs := []device.Address{
		{Object: device.SystemObject, Property: device.PropertyDefaultInput},
		{Object: device.SystemObject, Property: device.PropertyDevices},
	}

	defaultID, err := l.platform.DefaultInputDevice()
	switch {
	case err != nil:
		l.log.Error().
			Err(fmt.Errorf("%w: default input: %v", device.ErrListenerRegistration, err)).
			Msg("Error setting up volume change listener")
	case defaultID == device.UnknownID:
		l.log.Warn().Msg("No default input device, volume changes will not be observed")
	default:
		addrs = append(addrs, device.Address{Object: defaultID, Property: device.PropertyInputVolume})
	}

	for _, addr := range addrs {
		if err := l.platform.AddListener(addr, fn); err != nil {
			l.log.Error().Err(err).Stringer("address", addr).Msg("Error setting up change listener")
			continue
		}
		l.registered = append(l.registered, addr)
		l.log.Debug().Stringer("address", addr).Msg("Listener registered")
	}
}

// unregister removes every listener added by register, using the addresses
// captured at registration time.
func (l *listenerSet) unregister() {
	for _, addr := range l.registered {
		if err := l.platform.RemoveListener(addr); err != nil {
			l.log.Error().Err(err).Stringer("address", addr).Msg("Error removing change listener")
			continue
		}
		l.log.Debug().Stringer("address", addr).Msg("Listener removed")
	}
	l.registered = nil
}

// volumeTarget returns the device the volume listener was registered on.
func (l *listenerSet) volumeTarget() (device.ID, bool) {
	for _, addr := range l.registered {
		if addr.Property == device.PropertyInputVolume {
			return addr.Object, true
		}
	}
	return device.UnknownID, false
}
