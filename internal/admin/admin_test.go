package admin

import (
	"context"
	"folio/internal/mutation"
	"folio/internal/types"
	"net/http"
	"strings"
	"time"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func (s *UnitTestSuite) TestManagers() {
	s.Equal([]string{
		types.ResourceCategories,
		types.ResourceClientCategories,
		types.ResourceClients,
		types.ResourceEducation,
		types.ResourceHeroSlides,
		types.ResourcePortfolios,
		types.ResourceProjects,
	}, s.admin.Resources())

	m, ok := s.admin.Manager(types.ResourceEducation)
	s.Require().True(ok)
	s.Equal(types.ResourceEducation, m.Name())

	_, ok = s.admin.Manager(types.ResourceProfile)
	s.False(ok)
}

func (s *UnitTestSuite) TestPrefetch() {
	s.seedCategories("A")
	s.Require().NoError(s.admin.Prefetch(context.Background()))

	for _, name := range s.admin.Resources() {
		m, _ := s.admin.Manager(name)
		s.True(s.query.State(m.Key()).HasValue, name)
	}
	s.True(s.query.State(s.admin.Profile.Key()).HasValue)
}

func (s *UnitTestSuite) TestPrefetchFailsWithFirstError() {
	s.failOn(http.MethodGet + " /projects")
	err := s.admin.Prefetch(context.Background())
	s.ErrorIs(err, types.ErrAPI)
}

func (s *UnitTestSuite) TestProfileUpdate() {
	ctx := context.Background()
	p, err := s.admin.Profile.Get(ctx)
	s.Require().NoError(err)
	s.Empty(p.Name)

	res, err := s.admin.Profile.Update(ctx, types.Profile{Name: "Ada", Headline: "Engineer"})
	s.Require().NoError(err)
	s.Equal(mutation.Committed, res.Outcome)

	p, err = s.admin.Profile.Get(ctx)
	s.Require().NoError(err)
	s.Equal("Ada", p.Name)
	s.False(p.UpdatedAt.IsZero(), "value comes back from the server")

	s.failOn(http.MethodPut + " /profile")
	res, err = s.admin.Profile.Update(ctx, types.Profile{Name: "Bob"})
	s.Error(err)
	s.Equal(mutation.RolledBack, res.Outcome)
	cached, _ := s.admin.Profile.Read()
	s.Equal("Ada", cached.Name)
}

func (s *UnitTestSuite) TestUpload() {
	res, err := s.admin.Upload(context.Background(), "logo.svg", strings.NewReader("<svg/>"))
	s.Require().NoError(err)
	s.True(strings.HasPrefix(res.URL, "https://cdn.example.com/"))
	s.True(strings.HasSuffix(res.URL, "/logo.svg"))
}
