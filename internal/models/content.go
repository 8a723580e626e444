package models

import "time"

type ContentKind string

const (
	ContentBanners      ContentKind = "banners"
	ContentQuotes       ContentKind = "quotes"
	ContentGallery      ContentKind = "gallery"
	ContentVideos       ContentKind = "videos"
	ContentTestimonials ContentKind = "testimonials"
	ContentSocialLinks  ContentKind = "social_links"
)

var ContentKinds = []ContentKind{
	ContentBanners, ContentQuotes, ContentGallery, ContentVideos, ContentTestimonials, ContentSocialLinks,
}

func (k ContentKind) Valid() bool {
	for _, c := range ContentKinds {
		if c == k {
			return true
		}
	}
	return false
}

// ContentItem is the shared shape of the static site sections.
type ContentItem struct {
	ID        int64       `json:"id"`
	Kind      ContentKind `json:"kind"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	ImageURL  string      `json:"image_url"`
	LinkURL   string      `json:"link_url"`
	Author    string      `json:"author"`
	SortOrder int         `json:"sort_order"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
