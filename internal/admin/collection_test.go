package admin

import (
	"context"
	"folio/internal/mutation"
	"folio/internal/query"
	"folio/internal/types"
	"net/http"

	"github.com/google/go-cmp/cmp"
)

func (s *UnitTestSuite) TestMoveSendsCompleteOrder() {
	seeded := s.seedCategories("A", "B", "C")
	a, b, c := seeded[0].ID, seeded[1].ID, seeded[2].ID
	ctx := context.Background()

	res, err := s.admin.Categories.Move(ctx, 2, 0)
	s.Require().NoError(err)
	s.Equal(mutation.Committed, res.Outcome)

	sent := s.sentReorders()
	s.Require().Len(sent, 1)
	if diff := cmp.Diff([]string{c, a, b}, sent[0]); diff != "" {
		s.Fail("reorder payload mismatch (-want +got)", diff)
	}
	s.Equal([]string{c, a, b}, s.storedIDs(types.ResourceCategories))

	v, ok := s.query.Peek(s.admin.Categories.Key())
	s.Require().True(ok)
	cached := v.([]types.Category)
	s.Equal([]string{c, a, b}, categoryIDs(cached))
	for i, it := range cached {
		s.Equal(i, it.Order)
	}
}

func (s *UnitTestSuite) TestMoveIDAndNoop() {
	seeded := s.seedCategories("A", "B")
	ctx := context.Background()

	res, err := s.admin.Categories.Move(ctx, 1, 1)
	s.NoError(err)
	s.Equal(mutation.Idle, res.Outcome)

	res, err = s.admin.Categories.MoveID(ctx, seeded[1].ID, 0)
	s.Require().NoError(err)
	s.Equal(mutation.Committed, res.Outcome)
	s.Equal([]string{seeded[1].ID, seeded[0].ID}, s.storedIDs(types.ResourceCategories))

	_, err = s.admin.Categories.MoveID(ctx, "missing", 0)
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *UnitTestSuite) TestMoveRollsBackOnServerFailure() {
	seeded := s.seedCategories("A", "B", "C")
	ctx := context.Background()
	before, err := s.admin.Categories.List(ctx)
	s.Require().NoError(err)

	s.failOn(http.MethodPatch + " /categories/reorder")
	res, err := s.admin.Categories.Move(ctx, 0, 2)
	s.Error(err)
	s.ErrorIs(err, types.ErrAPI)
	s.Equal(mutation.RolledBack, res.Outcome)

	v, ok := s.query.Peek(s.admin.Categories.Key())
	s.Require().True(ok)
	if diff := cmp.Diff(before, v.([]types.Category)); diff != "" {
		s.Fail("cache not restored (-want +got)", diff)
	}
	s.Equal(categoryIDs(seeded), s.storedIDs(types.ResourceCategories))
}

func (s *UnitTestSuite) TestReorderRejectsIncompleteOrderLocally() {
	seeded := s.seedCategories("A", "B", "C")

	res, err := s.admin.Categories.Reorder(context.Background(), []string{seeded[0].ID, seeded[1].ID})
	s.Error(err)
	s.Equal(mutation.Idle, res.Outcome)
	s.Equal(0, s.hitCount(http.MethodPatch+" /categories/reorder"))
}

func (s *UnitTestSuite) TestToggleLastVisibleIsRefusedLocally() {
	shown := s.seedSlide("Shown", true)
	hidden := s.seedSlide("Hidden", false)
	ctx := context.Background()

	res, err := s.admin.HeroSlides.ToggleVisibility(ctx, shown.ID)
	s.ErrorIs(err, types.ErrLastVisible)
	s.Equal(mutation.Idle, res.Outcome)
	s.Equal(0, s.hitCount(http.MethodPatch+" /hero-slides/"+shown.ID+"/visibility"))

	res, err = s.admin.HeroSlides.Delete(ctx, shown.ID)
	s.ErrorIs(err, types.ErrLastVisible)
	s.Equal(mutation.Idle, res.Outcome)

	// showing the hidden slide is always allowed, after which the first may be hidden
	res, err = s.admin.HeroSlides.ToggleVisibility(ctx, hidden.ID)
	s.Require().NoError(err)
	s.Equal(mutation.Committed, res.Outcome)
	res, err = s.admin.HeroSlides.ToggleVisibility(ctx, shown.ID)
	s.Require().NoError(err)
	s.Equal(mutation.Committed, res.Outcome)

	list, err := s.admin.HeroSlides.List(ctx)
	s.Require().NoError(err)
	s.False(list[0].Visible)
	s.True(list[1].Visible)
}

func (s *UnitTestSuite) TestToggleRollsBackOnServerFailure() {
	seeded := s.seedCategories("A")
	ctx := context.Background()
	_, err := s.admin.Categories.List(ctx)
	s.Require().NoError(err)

	s.failOn(http.MethodPatch + " /categories/" + seeded[0].ID + "/visibility")
	res, err := s.admin.Categories.ToggleVisibility(ctx, seeded[0].ID)
	s.Error(err)
	s.Equal(mutation.RolledBack, res.Outcome)

	v, _ := s.query.Peek(s.admin.Categories.Key())
	s.True(v.([]types.Category)[0].Visible)
}

func (s *UnitTestSuite) TestDelete() {
	seeded := s.seedCategories("A", "B", "C")
	ctx := context.Background()

	res, err := s.admin.Categories.Delete(ctx, seeded[1].ID)
	s.Require().NoError(err)
	s.Equal(mutation.Committed, res.Outcome)

	opt := res.Optimistic.([]types.Category)
	s.Equal([]string{seeded[0].ID, seeded[2].ID}, categoryIDs(opt))

	list, err := s.admin.Categories.List(ctx)
	s.Require().NoError(err)
	s.Equal([]string{seeded[0].ID, seeded[2].ID}, categoryIDs(list))
	s.Equal(1, list[1].Order, "server closes the gap")

	_, err = s.admin.Categories.Delete(ctx, "missing")
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *UnitTestSuite) TestReadServesCacheAndRevalidates() {
	s.seedCategories("A")

	v := s.admin.Categories.Read()
	s.Contains([]query.Status{query.StatusLoading, query.StatusSuccess}, v.Status)

	s.Eventually(func() bool {
		return s.admin.Categories.Read().Status == query.StatusSuccess
	}, waitFor, tick)
	s.Len(s.admin.Categories.Read().Items, 1)

	s.seedCategories("B")
	s.Eventually(func() bool {
		return len(s.admin.Categories.Read().Items) == 2
	}, waitFor, tick, "create invalidates the collection")
}

func (s *UnitTestSuite) TestFilteredRows() {
	seeded := s.seedCategories("A", "B")
	ctx := context.Background()
	_, err := s.admin.Categories.ToggleVisibility(ctx, seeded[1].ID)
	s.Require().NoError(err)

	rows, err := s.admin.Categories.FilteredRows(ctx, "visible")
	s.Require().NoError(err)
	s.Equal([]Row{{ID: seeded[0].ID, Order: 0, Visible: true, Label: "A"}}, rows)

	rows, err = s.admin.Categories.Rows(ctx)
	s.Require().NoError(err)
	s.Len(rows, 2)
}

func (s *UnitTestSuite) TestLocked() {
	shown := s.seedSlide("Shown", true)
	s.seedSlide("Hidden", false)
	list, err := s.admin.HeroSlides.List(context.Background())
	s.Require().NoError(err)
	s.Equal(shown.ID, list[0].ID)

	locked := s.admin.HeroSlides.Locked(list)
	s.True(locked(0))
	s.False(locked(1))
	s.False(locked(5))

	cats := s.seedCategories("A")
	s.False(s.admin.Categories.Locked(cats)(0))
}
