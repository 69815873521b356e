package types

import (
	"fmt"

	"github.com/goccy/go-json"
)

const (
	TemplateClassic = "classic"
	TemplateFun     = "fun"
)

// SlideContent is the template specific part of a hero slide. The set of implementations is
// closed: ClassicContent and FunContent.
type SlideContent interface {
	Template() string
	isSlideContent()
}

type ClassicContent struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	CTALabel string `json:"cta_label,omitempty"`
	CTAHref  string `json:"cta_href,omitempty"`
}

func (ClassicContent) Template() string { return TemplateClassic }
func (ClassicContent) isSlideContent()  {}

type FunContent struct {
	Headline    string `json:"headline"`
	Emoji       string `json:"emoji,omitempty"`
	AccentColor string `json:"accent_color,omitempty"`
}

func (FunContent) Template() string { return TemplateFun }
func (FunContent) isSlideContent()  {}

// HeroSlide is a slide of the landing page carousel. On the wire the content is nested
// under "content" and discriminated by "template".
type HeroSlide struct {
	Meta
	ImageURL string
	Content  SlideContent
}

func (h HeroSlide) WithOrder(order int) HeroSlide { h.Order = order; return h }
func (h HeroSlide) WithVisible(v bool) HeroSlide  { h.Visible = v; return h }

type heroSlideWire struct {
	Meta
	Template string          `json:"template"`
	ImageURL string          `json:"image_url,omitempty"`
	Content  json.RawMessage `json:"content"`
}

func (h HeroSlide) MarshalJSON() ([]byte, error) {
	if h.Content == nil {
		return nil, fmt.Errorf("hero slide %q: missing content", h.ID)
	}
	content, err := json.Marshal(h.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(heroSlideWire{
		Meta:     h.Meta,
		Template: h.Content.Template(),
		ImageURL: h.ImageURL,
		Content:  content,
	})
}

func (h *HeroSlide) UnmarshalJSON(b []byte) error {
	var w heroSlideWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	content, err := DecodeSlideContent(w.Template, w.Content)
	if err != nil {
		return err
	}
	h.Meta = w.Meta
	h.ImageURL = w.ImageURL
	h.Content = content
	return nil
}

// DecodeSlideContent decodes raw content for the given template.
func DecodeSlideContent(template string, raw []byte) (SlideContent, error) {
	switch template {
	case TemplateClassic:
		var c ClassicContent
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, err
			}
		}
		return c, nil
	case TemplateFun:
		var c FunContent
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, err
			}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown hero slide template %q", template)
	}
}

// Heading returns the main line of text shown on the slide.
func (h HeroSlide) Heading() string {
	switch c := h.Content.(type) {
	case ClassicContent:
		return c.Title
	case FunContent:
		if c.Emoji != "" {
			return c.Emoji + " " + c.Headline
		}
		return c.Headline
	default:
		return ""
	}
}

func (h HeroSlide) Validate() error {
	switch c := h.Content.(type) {
	case ClassicContent:
		if c.Title == "" {
			return fmt.Errorf("classic slide: title is required")
		}
		if c.CTALabel != "" && c.CTAHref == "" {
			return fmt.Errorf("classic slide: cta_href is required with cta_label")
		}
	case FunContent:
		if c.Headline == "" {
			return fmt.Errorf("fun slide: headline is required")
		}
	case nil:
		return fmt.Errorf("hero slide: content is required")
	default:
		return fmt.Errorf("hero slide: unsupported content %T", c)
	}
	return nil
}
