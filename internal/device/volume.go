package device

import "github.com/rs/zerolog"

// Fallback volumes used when a device has no readable scalar control.
const (
	// VolumeAssumedFull is returned when the device only exposes a decibel
	// range. The decibel value is not decoded.
	VolumeAssumedFull float32 = 1.0
	// VolumeUnreadable is returned when no usable control exists.
	VolumeUnreadable float32 = 0.0
)

// ReadInputVolume returns the scalar input volume of id in [0,1].
//
// A device with a scalar control reports that control. A device with only a
// decibel range reports VolumeAssumedFull. Anything else, including a failed
// read, reports VolumeUnreadable.
func ReadInputVolume(p VolumeProbe, id ID, log zerolog.Logger) float32 {
	if p.HasScalarInputVolume(id) {
		vol, err := p.ScalarInputVolume(id)
		if err != nil {
			log.Debug().Err(err).Uint32("device", uint32(id)).Msg("Input volume read failed")
			return VolumeUnreadable
		}
		return clampVolume(vol)
	}

	if p.HasInputDecibelRange(id) {
		log.Debug().Uint32("device", uint32(id)).Msg("Device has decibel range only, assuming full volume")
		return VolumeAssumedFull
	}

	log.Debug().Uint32("device", uint32(id)).Msg("Device doesn't support volume control")
	return VolumeUnreadable
}

func clampVolume(v float32) float32 {
	switch {
	case v != v: // NaN
		return VolumeUnreadable
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
