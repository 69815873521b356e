package types

import (
	"time"
)

const (
	ResourceCategories       = "categories"
	ResourceHeroSlides       = "hero-slides"
	ResourceProjects         = "projects"
	ResourcePortfolios       = "portfolios"
	ResourceClients          = "clients"
	ResourceClientCategories = "client-categories"
	ResourceEducation        = "education"
	ResourceProfile          = "profile"
	ResourceUploads          = "uploads"
)

// OrderedResources lists every resource whose display position is controlled by `order`.
var OrderedResources = []string{
	ResourceCategories,
	ResourceHeroSlides,
	ResourceProjects,
	ResourcePortfolios,
	ResourceClients,
	ResourceClientCategories,
	ResourceEducation,
}

// RequiresVisible reports whether at least one member of the resource must stay visible.
func RequiresVisible(resource string) bool {
	return resource == ResourceHeroSlides
}

// Entity is an orderable record. The With* methods return a modified copy so that cached
// slices are never mutated in place.
type Entity[T any] interface {
	GetID() string
	GetOrder() int
	IsVisible() bool
	WithOrder(order int) T
	WithVisible(visible bool) T
}

// Meta holds the fields shared by every orderable resource.
type Meta struct {
	ID        string    `json:"id"`
	Order     int       `json:"order"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func (m Meta) GetID() string   { return m.ID }
func (m Meta) GetOrder() int   { return m.Order }
func (m Meta) IsVisible() bool { return m.Visible }

type Category struct {
	Meta
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

func (c Category) WithOrder(order int) Category { c.Order = order; return c }
func (c Category) WithVisible(v bool) Category  { c.Visible = v; return c }

type Project struct {
	Meta
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Summary    string   `json:"summary,omitempty"`
	CategoryID string   `json:"category_id,omitempty"`
	CoverURL   string   `json:"cover_url,omitempty"`
	URL        string   `json:"url,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

func (p Project) WithOrder(order int) Project { p.Order = order; return p }
func (p Project) WithVisible(v bool) Project  { p.Visible = v; return p }

type Portfolio struct {
	Meta
	Title       string `json:"title"`
	ClientID    string `json:"client_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
	Year        int    `json:"year,omitempty"`
}

func (p Portfolio) WithOrder(order int) Portfolio { p.Order = order; return p }
func (p Portfolio) WithVisible(v bool) Portfolio  { p.Visible = v; return p }

type Client struct {
	Meta
	Name       string `json:"name"`
	LogoURL    string `json:"logo_url,omitempty"`
	Website    string `json:"website,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

func (c Client) WithOrder(order int) Client { c.Order = order; return c }
func (c Client) WithVisible(v bool) Client  { c.Visible = v; return c }

type ClientCategory struct {
	Meta
	Name string `json:"name"`
}

func (c ClientCategory) WithOrder(order int) ClientCategory { c.Order = order; return c }
func (c ClientCategory) WithVisible(v bool) ClientCategory  { c.Visible = v; return c }

// Education is one entry of the education history. EndYear 0 means ongoing.
type Education struct {
	Meta
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field,omitempty"`
	StartYear   int    `json:"start_year"`
	EndYear     int    `json:"end_year,omitempty"`
	Description string `json:"description,omitempty"`
}

func (e Education) WithOrder(order int) Education { e.Order = order; return e }
func (e Education) WithVisible(v bool) Education  { e.Visible = v; return e }

// Profile is the singleton owner profile. It has no order.
type Profile struct {
	Name      string    `json:"name"`
	Headline  string    `json:"headline,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Email     string    `json:"email,omitempty"`
	Location  string    `json:"location,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Links     []Link    `json:"links,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ReorderRequest is the body of `PATCH /{resource}/reorder`: the complete desired order.
type ReorderRequest struct {
	Items []ReorderItem `json:"items"`
}

type ReorderItem struct {
	ID string `json:"id"`
}

// NewReorderRequest builds the payload from identifiers in their final order.
func NewReorderRequest(ids []string) ReorderRequest {
	items := make([]ReorderItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, ReorderItem{ID: id})
	}
	return ReorderRequest{Items: items}
}

// IDs returns the identifiers of the request in order.
func (r ReorderRequest) IDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type UploadResult struct {
	URL string `json:"url"`
}

// ErrorBody is the JSON error payload written by the reference server.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
