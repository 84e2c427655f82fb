package monitor

// AudioEventKind is the kind of an event on the audio channel.
type AudioEventKind string

const (
	RecordingFinished AudioEventKind = "recordingFinished"
	PlaybackStarted   AudioEventKind = "playbackStarted"
	AudioError        AudioEventKind = "error"
)

// AudioEvent is published by the recorder and playback collaborators.
type AudioEvent struct {
	Kind    AudioEventKind `json:"kind"`
	Message string         `json:"message,omitempty"`
}

// ErrorEvent wraps err as an AudioError event.
func ErrorEvent(err error) AudioEvent {
	return AudioEvent{Kind: AudioError, Message: err.Error()}
}
