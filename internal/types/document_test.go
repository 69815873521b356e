package types

func (s *UnitTestSuite) TestDocumentAccessors() {
	d := Document{"id": "a", "order": float64(3)}
	s.Equal("a", d.ID())
	s.Equal(3, d.Order())
	s.True(d.Visible(), "visible defaults to true")

	d["visible"] = false
	s.False(d.Visible())

	c := d.Clone()
	c["order"] = 7
	s.Equal(3, d.Order())
	s.Equal(7, c.Order())
}

func (s *UnitTestSuite) TestSortDocuments() {
	docs := []Document{
		{"id": "c", "order": 1},
		{"id": "b", "order": int64(0)},
		{"id": "a", "order": 1},
	}
	SortDocuments(docs)
	s.Equal([]string{"b", "a", "c"}, []string{docs[0].ID(), docs[1].ID(), docs[2].ID()})
}

func (s *UnitTestSuite) TestCheckPermutation() {
	known := map[string]bool{"a": true, "b": true, "c": true}
	exists := func(id string) bool { return known[id] }

	s.NoError(CheckPermutation(3, []string{"c", "a", "b"}, exists))
	s.Error(CheckPermutation(3, []string{"a", "b"}, exists))
	s.Error(CheckPermutation(3, []string{"a", "a", "b"}, exists))
	s.Error(CheckPermutation(3, []string{"a", "b", "z"}, exists))
	s.NoError(CheckPermutation(0, nil, exists))
}

func (s *UnitTestSuite) TestReorderRequest() {
	req := NewReorderRequest([]string{"x", "y"})
	s.Equal([]ReorderItem{{ID: "x"}, {ID: "y"}}, req.Items)
	s.Equal([]string{"x", "y"}, req.IDs())
}
