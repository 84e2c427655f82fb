package monitor

import (
	"sync"

	"github.com/rs/zerolog"
)

// sink owns the single subscriber of one channel. The subscriber reference
// is only read or swapped under mu, and values reach the subscriber only
// from the delivery queue.
type sink[T any] struct {
	channel Channel
	buffer  int
	queue   *Queue
	log     zerolog.Logger

	mu         sync.Mutex
	cur        *Subscription[T]
	pending    T
	hasPending bool
	scheduled  bool
	gen        uint64
}

func newSink[T any](channel Channel, buffer int, q *Queue, log zerolog.Logger) *sink[T] {
	if buffer <= 0 {
		buffer = 1
	}
	return &sink[T]{
		channel: channel,
		buffer:  buffer,
		queue:   q,
		log:     log.With().Str("channel", string(channel)).Logger(),
	}
}

// attach installs a new subscriber and closes the one it replaces.
func (s *sink[T]) attach() (sub, prev *Subscription[T]) {
	sub = newSubscription[T](s.channel, s.buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.cur
	s.cur = sub
	if prev != nil {
		prev.close()
	}
	return sub, prev
}

// detach removes the current subscriber, if any, and drops undelivered values.
func (s *sink[T]) detach() *Subscription[T] {
	return s.detachIf(nil)
}

// detachIf is detach restricted to sub. A nil sub matches any subscriber;
// otherwise a sink owned by someone else is left untouched and nil is
// returned.
func (s *sink[T]) detachIf(sub *Subscription[T]) *Subscription[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub != nil && s.cur != sub {
		return nil
	}
	prev := s.cur
	s.cur = nil
	s.hasPending = false
	var zero T
	s.pending = zero
	if prev != nil {
		prev.close()
	}
	return prev
}

// offer stores v as the latest value and schedules a flush. Values carrying
// a generation older than one already offered are ignored.
func (s *sink[T]) offer(gen uint64, v T) {
	s.mu.Lock()
	if gen <= s.gen {
		s.mu.Unlock()
		return
	}
	s.gen = gen
	s.pending = v
	s.hasPending = true
	if s.scheduled {
		s.mu.Unlock()
		return
	}
	s.scheduled = true
	s.mu.Unlock()

	if err := s.queue.PostOrPark(s.flush); err != nil {
		s.mu.Lock()
		s.scheduled = false
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("Dropping notification")
	}
}

func (s *sink[T]) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = false
	if !s.hasPending {
		return
	}
	v := s.pending
	var zero T
	s.pending = zero
	s.hasPending = false

	if s.cur == nil {
		return
	}
	s.cur.push(v)
}

// publish delivers v to the current subscriber without coalescing with
// other published values.
func (s *sink[T]) publish(v T) {
	if err := s.queue.Post(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cur != nil {
			s.cur.push(v)
		}
	}); err != nil {
		s.log.Warn().Err(err).Msg("Dropping event")
	}
}
