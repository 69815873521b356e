package types

import (
	"github.com/goccy/go-json"
)

func (s *UnitTestSuite) TestHeroSlideDecodesByTemplate() {
	var slides []HeroSlide
	err := json.Unmarshal([]byte(`[
		{"id":"a","order":0,"visible":true,"template":"classic","image_url":"/a.jpg",
		 "content":{"title":"Hello","subtitle":"World","cta_label":"Go","cta_href":"/go"}},
		{"id":"b","order":1,"visible":false,"template":"fun",
		 "content":{"headline":"Party","emoji":"🎉"}}
	]`), &slides)
	s.Require().NoError(err)
	s.Require().Len(slides, 2)

	classic, ok := slides[0].Content.(ClassicContent)
	s.Require().True(ok)
	s.Equal("Hello", classic.Title)
	s.Equal("/a.jpg", slides[0].ImageURL)
	s.Equal("Hello", slides[0].Heading())

	fun, ok := slides[1].Content.(FunContent)
	s.Require().True(ok)
	s.Equal("Party", fun.Headline)
	s.Equal("🎉 Party", slides[1].Heading())
	s.False(slides[1].Visible)
}

func (s *UnitTestSuite) TestHeroSlideEncodesTemplate() {
	slide := HeroSlide{
		Meta:    Meta{ID: "x", Order: 2, Visible: true},
		Content: FunContent{Headline: "Hi"},
	}
	b, err := json.Marshal(slide)
	s.Require().NoError(err)

	var wire map[string]any
	s.Require().NoError(json.Unmarshal(b, &wire))
	s.Equal("fun", wire["template"])
	s.Equal("x", wire["id"])
	s.Equal(map[string]any{"headline": "Hi"}, wire["content"])

	var back HeroSlide
	s.Require().NoError(json.Unmarshal(b, &back))
	s.Equal(slide.Content, back.Content)
	s.Equal(2, back.Order)

	_, err = json.Marshal(HeroSlide{Meta: Meta{ID: "empty"}})
	s.Error(err)
}

func (s *UnitTestSuite) TestHeroSlideUnknownTemplate() {
	var h HeroSlide
	err := json.Unmarshal([]byte(`{"id":"a","template":"brutalist","content":{}}`), &h)
	s.ErrorContains(err, "brutalist")
}

func (s *UnitTestSuite) TestHeroSlideValidate() {
	s.NoError(HeroSlide{Content: ClassicContent{Title: "t"}}.Validate())
	s.Error(HeroSlide{Content: ClassicContent{}}.Validate())
	s.Error(HeroSlide{Content: ClassicContent{Title: "t", CTALabel: "Go"}}.Validate())
	s.NoError(HeroSlide{Content: FunContent{Headline: "h"}}.Validate())
	s.Error(HeroSlide{Content: FunContent{}}.Validate())
	s.Error(HeroSlide{}.Validate())
}

type draftContent struct{}

func (draftContent) Template() string { return "draft" }
func (draftContent) isSlideContent()  {}

func (s *UnitTestSuite) TestHeroSlideUnsupportedContent() {
	h := HeroSlide{Content: draftContent{}}
	s.NotPanics(func() {
		s.ErrorContains(h.Validate(), "unsupported content")
		s.Empty(h.Heading())
	})
}
