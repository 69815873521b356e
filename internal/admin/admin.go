package admin

import (
	"context"
	"folio/internal/api"
	"folio/internal/mutation"
	"folio/internal/query"
	"folio/internal/types"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Admin groups every managed resource over one client, query store and mutation
// controller.
type Admin struct {
	Client    *api.Client
	Store     *query.Store
	Mutations *mutation.Controller

	Categories       *Collection[types.Category]
	HeroSlides       *Collection[types.HeroSlide]
	Projects         *Collection[types.Project]
	Portfolios       *Collection[types.Portfolio]
	Clients          *Collection[types.Client]
	ClientCategories *Collection[types.ClientCategory]
	Education        *Collection[types.Education]
	Profile          *ProfileResource

	managers map[string]Manager
}

func New(client *api.Client, store *query.Store) *Admin {
	ctrl := mutation.NewController(store)
	ctrl.OnSettled = func(key query.Key, outcome mutation.Outcome, err error) {
		fields := log.Fields{"key": key.String(), "outcome": outcome.String()}
		if err != nil {
			log.WithError(err).WithFields(fields).Warn("mutation settled")
			return
		}
		log.WithFields(fields).Debug("mutation settled")
	}

	a := &Admin{
		Client:    client,
		Store:     store,
		Mutations: ctrl,

		Categories: NewCollection(client, store, ctrl, types.ResourceCategories,
			func(c types.Category) string { return c.Name }),
		HeroSlides: NewCollection(client, store, ctrl, types.ResourceHeroSlides,
			func(h types.HeroSlide) string { return h.Heading() }),
		Projects: NewCollection(client, store, ctrl, types.ResourceProjects,
			func(p types.Project) string { return p.Title }),
		Portfolios: NewCollection(client, store, ctrl, types.ResourcePortfolios,
			func(p types.Portfolio) string { return p.Title }),
		Clients: NewCollection(client, store, ctrl, types.ResourceClients,
			func(c types.Client) string { return c.Name }),
		ClientCategories: NewCollection(client, store, ctrl, types.ResourceClientCategories,
			func(c types.ClientCategory) string { return c.Name }),
		Education: NewCollection(client, store, ctrl, types.ResourceEducation,
			func(e types.Education) string { return e.Degree + ", " + e.Institution }),
		Profile: NewProfileResource(client, store, ctrl),
	}
	a.managers = map[string]Manager{}
	for _, m := range []Manager{
		a.Categories, a.HeroSlides, a.Projects, a.Portfolios,
		a.Clients, a.ClientCategories, a.Education,
	} {
		a.managers[m.Name()] = m
	}
	return a
}

// Manager returns the collection named resource.
func (a *Admin) Manager(resource string) (Manager, bool) {
	m, ok := a.managers[resource]
	return m, ok
}

// Resources lists the names of every managed collection.
func (a *Admin) Resources() []string {
	names := make([]string, 0, len(a.managers))
	for n := range a.managers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Prefetch loads every collection and the profile concurrently. It returns the first error.
func (a *Admin) Prefetch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, m := range a.managers {
		g.Go(func() error {
			_, err := m.Rows(ctx)
			return err
		})
	}
	g.Go(func() error {
		_, err := a.Profile.Get(ctx)
		return err
	})
	return g.Wait()
}

// Upload sends a file through the upload endpoint.
func (a *Admin) Upload(ctx context.Context, filename string, r io.Reader) (types.UploadResult, error) {
	return a.Client.Upload(ctx, filename, r)
}
