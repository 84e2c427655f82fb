package coreaudio

import "github.com/rs/zerolog"

// Config holds the HAL platform settings.
type Config struct {
	Logger zerolog.Logger
}
