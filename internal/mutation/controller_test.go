package mutation

import (
	"context"
	"errors"
	"folio/internal/query"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
)

type item struct {
	ID    string
	Order int
}

func (s *UnitTestSuite) TestRollbackRestoresSnapshot() {
	key := query.NewKey("projects")
	before := []item{{"a", 0}, {"b", 1}, {"c", 2}}
	s.store.Write(key, before)
	snapBefore := s.store.Snapshot(key)

	boom := errors.New("server said no")
	var seen any
	res, err := s.ctrl.Mutate(context.Background(), key,
		func(context.Context) error {
			seen, _ = s.store.Peek(key)
			return boom
		},
		func(current any) any {
			list := current.([]item)
			return []item{list[2], list[0], list[1]}
		},
	)
	s.ErrorIs(err, boom, "the error of the call is returned unchanged")
	s.Equal(RolledBack, res.Outcome)

	if diff := cmp.Diff([]item{{"c", 2}, {"a", 0}, {"b", 1}}, seen); diff != "" {
		s.Failf("optimistic value not visible during the call", "(-want +got):\n%s", diff)
	}
	after := s.store.Snapshot(key)
	if diff := cmp.Diff(snapBefore, after); diff != "" {
		s.Failf("snapshot not restored", "(-want +got):\n%s", diff)
	}
}

func (s *UnitTestSuite) TestCommitInvalidates() {
	key := query.NewKey("projects")
	s.store.Write(key, []item{{"a", 0}})

	var settled []Outcome
	s.ctrl.OnSettled = func(_ query.Key, o Outcome, _ error) { settled = append(settled, o) }

	res, err := s.ctrl.Mutate(context.Background(), key,
		func(context.Context) error { return nil },
		func(any) any { return []item{{"a", 5}} },
	)
	s.NoError(err)
	s.Equal(Committed, res.Outcome)
	s.Equal([]item{{"a", 5}}, res.Optimistic)

	st := s.store.State(key)
	s.True(st.Invalidated)
	s.Equal([]item{{"a", 5}}, st.Value, "the optimistic value stays until the refetch")
	s.Equal([]Outcome{Committed}, settled)
}

func (s *UnitTestSuite) TestMutateWithoutCachedValue() {
	key := query.NewKey("projects")
	var got any = "unset"
	_, err := s.ctrl.Mutate(context.Background(), key,
		func(context.Context) error { return errors.New("fail") },
		func(current any) any {
			got = current
			return []item{{"x", 0}}
		},
	)
	s.Error(err)
	s.Nil(got)
	_, ok := s.store.Peek(key)
	s.False(ok)
}

func (s *UnitTestSuite) TestMutationsOfOneKeyAreSerialized() {
	key := query.NewKey("projects")
	s.store.Write(key, 0)

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.ctrl.Mutate(context.Background(), key,
			func(context.Context) error {
				close(firstStarted)
				<-releaseFirst
				return nil
			},
			func(current any) any { return current.(int) + 1 },
		)
	}()
	<-firstStarted
	s.True(s.ctrl.Pending(key))

	var secondSaw any
	go func() {
		defer wg.Done()
		_, _ = s.ctrl.Mutate(context.Background(), key,
			func(context.Context) error { return nil },
			func(current any) any {
				secondSaw = current
				return current.(int) + 10
			},
		)
	}()
	time.Sleep(20 * time.Millisecond)
	s.Nil(secondSaw, "the second mutation waits for the first to settle")

	close(releaseFirst)
	wg.Wait()
	s.Equal(1, secondSaw)
	v, _ := s.store.Peek(key)
	s.Equal(11, v)
	s.False(s.ctrl.Pending(key))
}

func (s *UnitTestSuite) TestWaitingMutationHonoursContext() {
	key := query.NewKey("projects")
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.ctrl.Mutate(context.Background(), key,
			func(context.Context) error {
				close(started)
				<-release
				return nil
			},
			func(any) any { return 1 },
		)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res, err := s.ctrl.Mutate(ctx, key,
		func(context.Context) error { return nil },
		func(any) any { return 2 },
	)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Equal(Idle, res.Outcome)

	close(release)
	<-done
}

func (s *UnitTestSuite) TestInFlightFetchCannotOverwriteOptimisticValue() {
	key := query.NewKey("projects")
	s.store.Write(key, "old")
	s.store.Invalidate(key)

	fetchStarted := make(chan struct{})
	fetchRelease := make(chan struct{})
	s.store.Read(key, func(ctx context.Context) (any, error) {
		close(fetchStarted)
		<-fetchRelease
		return "server-old", nil
	})
	<-fetchStarted

	_, err := s.ctrl.Mutate(context.Background(), key,
		func(context.Context) error {
			close(fetchRelease)
			// let the cancelled fetch try to settle
			time.Sleep(20 * time.Millisecond)
			v, _ := s.store.Peek(key)
			s.Equal("optimistic", v)
			return nil
		},
		func(any) any { return "optimistic" },
	)
	s.NoError(err)
}
