package admin

import (
	"context"
	"folio/internal/api"
	"folio/internal/mutation"
	"folio/internal/query"
	"folio/internal/types"
)

// ProfileResource is the cached, optimistically updated owner profile.
type ProfileResource struct {
	res   api.Singleton[types.Profile]
	store *query.Store
	ctrl  *mutation.Controller
	key   query.Key
}

func NewProfileResource(c *api.Client, store *query.Store, ctrl *mutation.Controller) *ProfileResource {
	return &ProfileResource{
		res:   api.NewSingleton[types.Profile](c, types.ResourceProfile),
		store: store,
		ctrl:  ctrl,
		key:   query.NewKey(types.ResourceProfile),
	}
}

func (p *ProfileResource) Key() query.Key { return p.key }

func (p *ProfileResource) fetch(ctx context.Context) (any, error) {
	return p.res.Get(ctx)
}

func (p *ProfileResource) Read() (types.Profile, query.State) {
	st := p.store.Read(p.key, p.fetch)
	prof, _ := st.Value.(types.Profile)
	return prof, st
}

func (p *ProfileResource) Get(ctx context.Context) (types.Profile, error) {
	v, err := p.store.Fetch(ctx, p.key, p.fetch)
	if err != nil {
		return types.Profile{}, err
	}
	prof, _ := v.(types.Profile)
	return prof, nil
}

// Update shows next immediately and rolls back if the server refuses it.
func (p *ProfileResource) Update(ctx context.Context, next types.Profile) (mutation.Result, error) {
	return p.ctrl.Mutate(ctx, p.key,
		func(ctx context.Context) error {
			_, err := p.res.Update(ctx, next)
			return err
		},
		func(any) any { return next },
	)
}
