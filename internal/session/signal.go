package session

import (
	"folio/internal/types"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Signal delivers logout notifications to the subscribers registered by the application
// shell. A zero Signal is ready to use.
type Signal struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(types.Reason)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Signal) Subscribe(fn func(types.Reason)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(types.Reason))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Emit calls every subscriber with reason. Subscribers run outside the lock and may
// unsubscribe themselves.
func (s *Signal) Emit(reason types.Reason) {
	s.mu.Lock()
	fns := make([]func(types.Reason), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	log.WithField("reason", reason).Info("session logout")
	for _, fn := range fns {
		fn(reason)
	}
}
