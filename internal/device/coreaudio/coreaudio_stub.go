//go:build !darwin || !cgo

package coreaudio

import (
	"fmt"

	"github.com/petems/micwatch/internal/device"
)

// Open reports that the HAL is unavailable on this build.
func Open(cfg Config) (device.Platform, func() error, error) {
	return nil, nil, fmt.Errorf("coreaudio: %w", device.ErrUnsupported)
}
