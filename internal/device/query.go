package device

import (
	"github.com/rs/zerolog"
)

// Querier enumerates physical input devices on a Platform.
type Querier struct {
	platform Platform
	log      zerolog.Logger
}

// NewQuerier creates a Querier for p.
func NewQuerier(p Platform, log zerolog.Logger) *Querier {
	return &Querier{platform: p, log: log}
}

// EnumerateInputDevices returns the physical input devices currently known
// to the platform. It never fails: a platform error yields an empty
// snapshot and a device whose name cannot be read is skipped.
func (q *Querier) EnumerateInputDevices() Snapshot {
	snap := Snapshot{}

	ids, err := q.platform.DeviceIDs()
	if err != nil {
		q.log.Error().Err(err).Msg("Failed to enumerate audio devices")
		return snap
	}

	defaultID, err := q.platform.DefaultInputDevice()
	if err != nil {
		q.log.Warn().Err(err).Msg("Failed to get default input device")
		defaultID = UnknownID
	}

	for _, id := range ids {
		transport, ok := q.physicalInput(id)
		if !ok {
			continue
		}

		name, err := q.platform.Name(id)
		if err != nil {
			q.log.Debug().Err(err).Uint32("device", uint32(id)).Msg("Skipping device without name")
			continue
		}

		snap = append(snap, Record{
			ID:             id,
			Name:           name,
			IsDefaultInput: id != UnknownID && id == defaultID,
			Transport:      transport,
			InputVolume:    ReadInputVolume(q.platform, id, q.log),
		})
	}

	return snap
}

// physicalInput reports whether id is an input-capable device on a physical
// transport. Virtual, aggregate and loopback devices are rejected.
func (q *Querier) physicalInput(id ID) (TransportKind, bool) {
	if !q.isInputDevice(id) {
		return TransportUnknown, false
	}

	code, err := q.platform.TransportCode(id)
	if err != nil {
		q.log.Debug().Err(err).Uint32("device", uint32(id)).Msg("Failed to get device transport type")
		return TransportUnknown, false
	}

	kind := Classify(code)
	return kind, kind.Physical()
}

func (q *Querier) isInputDevice(id ID) bool {
	n, err := q.platform.InputBufferCount(id)
	if err != nil {
		return false
	}
	return n > 0
}
