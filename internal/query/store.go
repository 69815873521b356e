package query

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Status int

const (
	StatusIdle    Status = iota // no value, no fetch yet
	StatusLoading               // first fetch in flight, nothing to show
	StatusSuccess
	StatusError
)

var StatusTextMap = map[Status]string{
	StatusIdle:    "idle",
	StatusLoading: "loading",
	StatusSuccess: "success",
	StatusError:   "error",
}

func (s Status) String() string { return StatusTextMap[s] }

// FetchFunc loads the authoritative value of a key. It must honour ctx cancellation.
type FetchFunc func(ctx context.Context) (any, error)

// State is what a consumer observes for a key at one point in time. A stale or invalidated
// value is still reported while Fetching is true.
type State struct {
	Status      Status
	Value       any
	HasValue    bool
	Err         error
	Fetching    bool
	Invalidated bool
	UpdatedAt   time.Time
}

// Snapshot is a copy of an entry taken before an optimistic write.
type Snapshot struct {
	Value       any
	Present     bool
	UpdatedAt   time.Time
	Invalidated bool
}

type entry struct {
	value       any
	hasValue    bool
	updatedAt   time.Time
	invalidated bool
	err         error
	call        *fetchCall
	holds       int
	released    chan struct{} // closed when holds drops back to zero
}

type fetchCall struct {
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
	cancelled bool
	err       error
}

func (c *fetchCall) finish() {
	c.once.Do(func() { close(c.done) })
}

// Store is a keyed cache of query results with stale-while-revalidate reads.
// Entries are never evicted; they live as long as the store.
type Store struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	subs       map[Key]map[int]func(State)
	nextSub    int
	staleAfter func(resource string) time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a store. staleAfter returns the staleness window of a resource; nil means
// values never go stale on their own.
func New(staleAfter func(resource string) time.Duration) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		entries:    make(map[Key]*entry),
		subs:       make(map[Key]map[int]func(State)),
		staleAfter: staleAfter,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Read returns the current state of key and, when the entry is absent, invalidated or
// stale, starts a background fetch. Concurrent reads share one fetch.
func (s *Store) Read(key Key, fetch FetchFunc) State {
	s.mu.Lock()
	e := s.entry(key)
	started := false
	if e.call == nil && s.needsFetch(key, e) {
		s.startFetch(key, e, fetch)
		started = true
	}
	st := e.state()
	fns := s.subscribers(key, started)
	s.mu.Unlock()

	notify(fns, st)
	return st
}

// Fetch is the blocking form of Read: it returns a fresh value, waiting for a fetch when
// needed. A fetch cancelled by an optimistic write yields the value written instead.
func (s *Store) Fetch(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	for {
		s.mu.Lock()
		e := s.entry(key)
		if e.holds > 0 && !e.hasValue {
			// a mutation owns the key and has not written yet
			released := e.released
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-released:
			}
			continue
		}
		if e.call == nil && !s.needsFetch(key, e) {
			v := e.value
			s.mu.Unlock()
			return v, nil
		}
		var fns []func(State)
		if e.call == nil {
			s.startFetch(key, e, fetch)
			fns = s.subscribers(key, true)
		}
		call := e.call
		st := e.state()
		s.mu.Unlock()
		notify(fns, st)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-call.done:
		}

		s.mu.Lock()
		cancelled, err := call.cancelled, call.err
		v, ok := e.value, e.hasValue
		s.mu.Unlock()
		switch {
		case cancelled && ok:
			return v, nil
		case cancelled:
			continue
		case err != nil:
			return nil, err
		default:
			return v, nil
		}
	}
}

// Peek returns the cached value without triggering a fetch.
func (s *Store) Peek(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

// State returns the state of key without triggering a fetch.
func (s *Store) State(key Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return State{Status: StatusIdle}
	}
	return e.state()
}

// Write replaces the value of key and marks it fresh.
func (s *Store) Write(key Key, value any) {
	s.mu.Lock()
	e := s.entry(key)
	e.value = value
	e.hasValue = true
	e.updatedAt = timeNow()
	e.invalidated = false
	e.err = nil
	st := e.state()
	fns := s.subscribers(key, true)
	s.mu.Unlock()
	notify(fns, st)
}

// Invalidate marks key for refetch on the next read. The last value is kept.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.invalidated = true
	st := e.state()
	fns := s.subscribers(key, true)
	s.mu.Unlock()
	notify(fns, st)
}

// InvalidateResource invalidates every key of resource, whatever its filter.
func (s *Store) InvalidateResource(resource string) {
	for _, k := range s.Keys() {
		if k.Resource == resource {
			s.Invalidate(k)
		}
	}
}

// CancelFetch aborts the in-flight fetch of key. Its result, if it still arrives, is
// discarded.
func (s *Store) CancelFetch(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.call == nil {
		return
	}
	call := e.call
	e.call = nil
	call.cancelled = true
	call.cancel()
	call.finish()
	log.WithField("key", key.String()).Debug("query fetch cancelled")
}

// Hold stops reads of key from starting fetches until release is called, so that a
// fetch cannot overwrite a value written optimistically. Fetch calls on a held key without
// a value wait for the release.
func (s *Store) Hold(key Key) (release func()) {
	s.mu.Lock()
	e := s.entry(key)
	if e.holds == 0 {
		e.released = make(chan struct{})
	}
	e.holds++
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			e.holds--
			if e.holds == 0 {
				close(e.released)
				e.released = nil
			}
			s.mu.Unlock()
		})
	}
}

// Snapshot copies the entry of key for a later Restore.
func (s *Store) Snapshot(key Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.hasValue {
		return Snapshot{}
	}
	return Snapshot{
		Value:       e.value,
		Present:     true,
		UpdatedAt:   e.updatedAt,
		Invalidated: e.invalidated,
	}
}

// Restore puts back a snapshot. A snapshot of an absent entry removes the value again.
func (s *Store) Restore(key Key, snap Snapshot) {
	s.mu.Lock()
	e := s.entry(key)
	e.value = snap.Value
	e.hasValue = snap.Present
	e.updatedAt = snap.UpdatedAt
	e.invalidated = snap.Invalidated
	st := e.state()
	fns := s.subscribers(key, true)
	s.mu.Unlock()
	notify(fns, st)
}

// Remove drops key entirely, cancelling its fetch.
func (s *Store) Remove(key Key) {
	s.CancelFetch(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Subscribe calls fn on every state change of key until unsubscribe is called.
func (s *Store) Subscribe(key Key, fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.subs[key]
	if !ok {
		m = make(map[int]func(State))
		s.subs[key] = m
	}
	id := s.nextSub
	s.nextSub++
	m[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs[key], id)
		s.mu.Unlock()
	}
}

// Close cancels every fetch and waits for the fetch goroutines to return.
func (s *Store) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Store) entry(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

func (s *Store) needsFetch(key Key, e *entry) bool {
	if e.holds > 0 {
		return false
	}
	if !e.hasValue || e.invalidated {
		return true
	}
	if s.staleAfter == nil {
		return false
	}
	return timeNow().Sub(e.updatedAt) > s.staleAfter(key.Resource)
}

func (s *Store) startFetch(key Key, e *entry, fetch FetchFunc) {
	ctx, cancel := context.WithCancel(s.ctx)
	call := &fetchCall{cancel: cancel, done: make(chan struct{})}
	e.call = call
	log.WithField("key", key.String()).Debug("query fetch started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		v, err := fetch(ctx)
		s.settle(key, call, v, err)
	}()
}

func (s *Store) settle(key Key, call *fetchCall, v any, err error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.call != call {
		// cancelled or removed while in flight
		s.mu.Unlock()
		call.finish()
		return
	}
	e.call = nil
	call.err = err
	if err != nil {
		e.err = err
		log.WithError(err).WithField("key", key.String()).Warn("query fetch failed")
	} else {
		e.value = v
		e.hasValue = true
		e.updatedAt = timeNow()
		e.invalidated = false
		e.err = nil
	}
	st := e.state()
	fns := s.subscribers(key, true)
	s.mu.Unlock()

	call.finish()
	notify(fns, st)
}

// subscribers copies the callbacks of key when changed is true; it must be called with
// the lock held.
func (s *Store) subscribers(key Key, changed bool) []func(State) {
	if !changed {
		return nil
	}
	m := s.subs[key]
	fns := make([]func(State), 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(State), st State) {
	for _, fn := range fns {
		fn(st)
	}
}

func (e *entry) state() State {
	st := State{
		Value:       e.value,
		HasValue:    e.hasValue,
		Err:         e.err,
		Fetching:    e.call != nil,
		Invalidated: e.invalidated,
		UpdatedAt:   e.updatedAt,
	}
	switch {
	case e.call != nil && !e.hasValue:
		st.Status = StatusLoading
	case e.err != nil:
		st.Status = StatusError
	case e.hasValue:
		st.Status = StatusSuccess
	default:
		st.Status = StatusIdle
	}
	return st
}
