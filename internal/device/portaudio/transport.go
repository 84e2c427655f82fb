package portaudio

import (
	"strings"

	"github.com/petems/micwatch/internal/device"
)

// ALSA and Pulse pseudo-devices. They route audio but are not hardware.
var pseudoDevices = map[string]bool{
	"sysdefault": true,
	"spdif":      true,
	"lavrate":    true,
	"samplerate": true,
	"speexrate":  true,
	"jack":       true,
	"pipewire":   true,
	"pulse":      true,
	"speex":      true,
	"upmix":      true,
	"vdownmix":   true,
	"default":    true,
	"dmix":       true,
	"hw":         true,
}

var (
	usbHints       = []string{"usb"}
	bluetoothHints = []string{"bluetooth", "airpods", "bluez", "hands-free", "a2dp"}
	builtInHints   = []string{"built-in", "builtin", "internal", "macbook", "hda intel", "(hw:"}
)

// guessTransport maps a PortAudio device name onto a HAL transport code.
// PortAudio reports no transport, so the name is all there is.
func guessTransport(name string) device.TransportCode {
	n := strings.ToLower(strings.TrimSpace(name))
	if pseudoDevices[n] {
		return device.TransportCodeVirtual
	}
	switch {
	case containsAny(n, usbHints):
		return device.TransportCodeUSB
	case containsAny(n, bluetoothHints):
		return device.TransportCodeBluetooth
	case containsAny(n, builtInHints):
		return device.TransportCodeBuiltIn
	default:
		return device.TransportCodeUnknown
	}
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
