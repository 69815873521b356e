package mutation

import (
	"context"
	"folio/internal/query"
	"sync"

	log "github.com/sirupsen/logrus"
)

type Outcome int

const (
	Idle Outcome = iota
	Pending
	Committed
	RolledBack
)

var OutcomeTextMap = map[Outcome]string{
	Idle:       "idle",
	Pending:    "pending",
	Committed:  "committed",
	RolledBack: "rolled_back",
}

func (o Outcome) String() string { return OutcomeTextMap[o] }

// Result reports how a mutation settled. Optimistic is the value that was shown while
// the server call was pending.
type Result struct {
	Outcome    Outcome
	Optimistic any
}

// ServerCall performs the mutating request.
type ServerCall func(ctx context.Context) error

// ComputeFunc derives the optimistic value from the current one. current is nil when the
// key holds no value. It must not modify current in place.
type ComputeFunc func(current any) any

// Context is the per-mutation record of the value to restore on failure.
type Context struct {
	Key      query.Key
	Snapshot query.Snapshot
}

// Controller applies optimistic mutations to a query store. Mutations of the same key are
// serialized: a second one waits until the first has settled. Different keys do not wait
// for each other.
type Controller struct {
	store *query.Store

	mu    sync.Mutex
	slots map[query.Key]chan struct{}

	// OnSettled, when set, is called after every mutation.
	OnSettled func(key query.Key, outcome Outcome, err error)
}

func NewController(store *query.Store) *Controller {
	return &Controller{
		store: store,
		slots: make(map[query.Key]chan struct{}),
	}
}

// Mutate snapshots key, writes compute(current) to the store, then runs call. On success
// the key is invalidated so the next read reconciles with the server. On failure the
// snapshot is restored and the error of call is returned unchanged.
func (c *Controller) Mutate(ctx context.Context, key query.Key, call ServerCall, compute ComputeFunc) (Result, error) {
	release, err := c.acquire(ctx, key)
	if err != nil {
		return Result{Outcome: Idle}, err
	}
	defer release()

	c.store.CancelFetch(key)
	unhold := c.store.Hold(key)
	defer unhold()
	mctx := &Context{Key: key, Snapshot: c.store.Snapshot(key)}
	var current any
	if mctx.Snapshot.Present {
		current = mctx.Snapshot.Value
	}
	optimistic := compute(current)
	c.store.Write(key, optimistic)
	log.WithField("key", key.String()).Debug("optimistic value written")

	if err := call(ctx); err != nil {
		c.store.Restore(key, mctx.Snapshot)
		log.WithError(err).WithField("key", key.String()).Warn("mutation rolled back")
		c.settled(key, RolledBack, err)
		return Result{Outcome: RolledBack, Optimistic: optimistic}, err
	}

	c.store.Invalidate(key)
	c.settled(key, Committed, nil)
	return Result{Outcome: Committed, Optimistic: optimistic}, nil
}

// Pending reports whether a mutation currently holds key.
func (c *Controller) Pending(key query.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.slots[key]
	return ok
}

// acquire waits for the mutation slot of key. Each waiter re-checks after the holder
// releases, so waiters are admitted one at a time.
func (c *Controller) acquire(ctx context.Context, key query.Key) (func(), error) {
	for {
		c.mu.Lock()
		busy, ok := c.slots[key]
		if !ok {
			done := make(chan struct{})
			c.slots[key] = done
			c.mu.Unlock()
			return func() {
				c.mu.Lock()
				delete(c.slots, key)
				c.mu.Unlock()
				close(done)
			}, nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-busy:
		}
	}
}

func (c *Controller) settled(key query.Key, outcome Outcome, err error) {
	if c.OnSettled != nil {
		c.OnSettled(key, outcome, err)
	}
}
