package query

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// gatedFetch returns values from results, one per call, each released by a send on gate.
type gatedFetch struct {
	calls   atomic.Int32
	gate    chan struct{}
	results []any
}

func newGatedFetch(results ...any) *gatedFetch {
	return &gatedFetch{gate: make(chan struct{}), results: results}
}

func (g *gatedFetch) fetch(ctx context.Context) (any, error) {
	n := g.calls.Add(1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.gate:
	}
	v := g.results[int(n-1)%len(g.results)]
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v, nil
}

func (s *UnitTestSuite) waitIdle(key Key) State {
	var st State
	s.Eventually(func() bool {
		st = s.store.State(key)
		return !st.Fetching
	}, time.Second, time.Millisecond)
	return st
}

func (s *UnitTestSuite) TestReadLoadsOnce() {
	key := NewKey("projects")
	f := newGatedFetch([]string{"a", "b"})

	st := s.store.Read(key, f.fetch)
	s.Equal(StatusLoading, st.Status)
	s.False(st.HasValue)
	s.True(st.Fetching)

	// concurrent reads share the in-flight fetch
	s.store.Read(key, f.fetch)
	s.store.Read(key, f.fetch)

	f.gate <- struct{}{}
	st = s.waitIdle(key)
	s.Equal(StatusSuccess, st.Status)
	s.Equal([]string{"a", "b"}, st.Value)
	s.Equal(int32(1), f.calls.Load())

	// fresh values are served without fetching
	st = s.store.Read(key, f.fetch)
	s.False(st.Fetching)
	s.Equal(int32(1), f.calls.Load())
}

func (s *UnitTestSuite) TestStaleWhileRevalidate() {
	key := NewKey("projects")
	f := newGatedFetch("v1", "v2")
	go func() { f.gate <- struct{}{} }()
	v, err := s.store.Fetch(context.Background(), key, f.fetch)
	s.Require().NoError(err)
	s.Equal("v1", v)

	s.now = s.now.Add(2 * time.Minute)
	st := s.store.Read(key, f.fetch)
	s.Equal(StatusSuccess, st.Status, "a stale value is still shown")
	s.Equal("v1", st.Value)
	s.True(st.Fetching)

	f.gate <- struct{}{}
	st = s.waitIdle(key)
	s.Equal("v2", st.Value)
	s.Equal(s.now, st.UpdatedAt)
}

func (s *UnitTestSuite) TestInvalidateKeepsValue() {
	key := NewKey("projects")
	s.store.Write(key, "v1")
	s.store.Invalidate(key)

	st := s.store.State(key)
	s.True(st.Invalidated)
	s.Equal("v1", st.Value)

	f := newGatedFetch("v2")
	st = s.store.Read(key, f.fetch)
	s.Equal("v1", st.Value)
	s.True(st.Fetching)
	f.gate <- struct{}{}
	st = s.waitIdle(key)
	s.Equal("v2", st.Value)
	s.False(st.Invalidated)
}

func (s *UnitTestSuite) TestInvalidateResource() {
	all := NewKey("projects")
	filtered := NewKey("projects", "visible")
	other := NewKey("clients")
	for _, k := range []Key{all, filtered, other} {
		s.store.Write(k, k.String())
	}
	s.store.InvalidateResource("projects")
	s.True(s.store.State(all).Invalidated)
	s.True(s.store.State(filtered).Invalidated)
	s.False(s.store.State(other).Invalidated)
}

func (s *UnitTestSuite) TestFetchErrorKeepsLastValue() {
	key := NewKey("projects")
	s.store.Write(key, "v1")
	s.store.Invalidate(key)

	boom := errors.New("boom")
	f := newGatedFetch(boom)
	go func() { f.gate <- struct{}{} }()
	_, err := s.store.Fetch(context.Background(), key, f.fetch)
	s.ErrorIs(err, boom)

	st := s.store.State(key)
	s.Equal(StatusError, st.Status)
	s.Equal("v1", st.Value)
	s.ErrorIs(st.Err, boom)
}

func (s *UnitTestSuite) TestCancelFetchDropsLateResult() {
	key := NewKey("projects")
	s.store.Write(key, "v1")
	s.store.Invalidate(key)

	started := make(chan struct{})
	finished := make(chan struct{})
	slow := func(ctx context.Context) (any, error) {
		close(started)
		defer close(finished)
		<-ctx.Done()
		// a server that ignores cancellation still answers
		return "late", nil
	}
	s.store.Read(key, slow)
	<-started
	s.store.CancelFetch(key)
	<-finished

	s.Eventually(func() bool { return !s.store.State(key).Fetching }, time.Second, time.Millisecond)
	s.Equal("v1", s.store.State(key).Value)
}

func (s *UnitTestSuite) TestFetchReturnsWrittenValueWhenCancelled() {
	key := NewKey("projects")
	f := newGatedFetch("server")

	done := make(chan any)
	go func() {
		v, _ := s.store.Fetch(context.Background(), key, f.fetch)
		done <- v
	}()
	s.Eventually(func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	s.store.CancelFetch(key)
	s.store.Write(key, "optimistic")
	// the waiter either saw the written value or restarted; release a restarted fetch
	select {
	case v := <-done:
		s.Equal("optimistic", v)
	case <-time.After(100 * time.Millisecond):
		f.gate <- struct{}{}
		s.NotNil(<-done)
	}
}

func (s *UnitTestSuite) TestHoldBlocksFetches() {
	key := NewKey("projects")
	s.store.Write(key, "v1")
	s.store.Invalidate(key)

	release := s.store.Hold(key)
	f := newGatedFetch("v2")
	st := s.store.Read(key, f.fetch)
	s.False(st.Fetching)
	s.Equal(int32(0), f.calls.Load())

	release()
	release() // idempotent
	st = s.store.Read(key, f.fetch)
	s.True(st.Fetching)
	f.gate <- struct{}{}
	s.Equal("v2", s.waitIdle(key).Value)
}

func (s *UnitTestSuite) TestSnapshotRestore() {
	key := NewKey("projects")
	empty := s.store.Snapshot(key)
	s.False(empty.Present)

	s.store.Write(key, "optimistic")
	s.store.Restore(key, empty)
	_, ok := s.store.Peek(key)
	s.False(ok, "restoring an absent snapshot removes the value")

	s.store.Write(key, "v1")
	snap := s.store.Snapshot(key)
	s.store.Write(key, "v2")
	s.store.Restore(key, snap)
	v, ok := s.store.Peek(key)
	s.True(ok)
	s.Equal("v1", v)
}

func (s *UnitTestSuite) TestSubscribe() {
	key := NewKey("projects")
	var seen []any
	unsubscribe := s.store.Subscribe(key, func(st State) { seen = append(seen, st.Value) })
	s.store.Write(key, "v1")
	s.store.Write(key, "v2")
	unsubscribe()
	s.store.Write(key, "v3")
	s.Equal([]any{"v1", "v2"}, seen)
}

func (s *UnitTestSuite) TestFetchHonoursContext() {
	key := NewKey("projects")
	f := newGatedFetch("v1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.store.Fetch(ctx, key, f.fetch)
	s.ErrorIs(err, context.Canceled)
	// the background fetch is released by Close in TearDownTest
}

func (s *UnitTestSuite) TestRemove() {
	key := NewKey("projects")
	s.store.Write(key, "v1")
	s.store.Remove(key)
	_, ok := s.store.Peek(key)
	s.False(ok)
	s.Empty(s.store.Keys())
}

func (s *UnitTestSuite) TestKeyString() {
	s.Equal("projects", NewKey("projects").String())
	s.Equal("projects?visible&x", NewKey("projects", "visible", "x").String())
	s.Equal(StatusTextMap[StatusLoading], StatusLoading.String())
}

func (s *UnitTestSuite) TestFetchWaitsForHoldOnEmptyKey() {
	key := NewKey("profile")
	release := s.store.Hold(key)
	f := newGatedFetch("server")

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := s.store.Fetch(context.Background(), key, f.fetch)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		s.FailNow("fetch returned while the key was held", "%v", r)
	case <-time.After(30 * time.Millisecond):
	}
	s.Equal(int32(0), f.calls.Load())

	s.store.Write(key, "optimistic")
	release()
	r := <-done
	s.NoError(r.err)
	s.Equal("optimistic", r.v)
	s.Equal(int32(0), f.calls.Load())
}

func (s *UnitTestSuite) TestFetchOnHeldKeyHonoursContext() {
	key := NewKey("profile")
	release := s.store.Hold(key)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.store.Fetch(ctx, key, newGatedFetch("server").fetch)
	s.ErrorIs(err, context.DeadlineExceeded)
}
