package monitor

import (
	"sync"

	"github.com/google/uuid"
)

// Channel names a subscription channel. Each channel has at most one
// subscriber at a time.
type Channel string

const (
	// DeviceChannel carries device snapshots.
	DeviceChannel Channel = "microphone_events"
	// AudioChannel carries recorder and playback events from collaborators.
	AudioChannel Channel = "audio_events"
)

// Subscription is the receiving end of a channel. Only the latest value is
// kept: a value that was not received in time is replaced by the next one.
// C is closed when the subscription is superseded or unsubscribed.
type Subscription[T any] struct {
	ID      uuid.UUID
	Channel Channel

	ch   chan T
	once sync.Once
}

func newSubscription[T any](channel Channel, buffer int) *Subscription[T] {
	return &Subscription[T]{
		ID:      uuid.New(),
		Channel: channel,
		ch:      make(chan T, buffer),
	}
}

// C returns the delivery channel.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// push replaces any undelivered value with v. Callers serialize push and
// close through the owning sink's mutex.
func (s *Subscription[T]) push(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *Subscription[T]) close() {
	s.once.Do(func() { close(s.ch) })
}
