package services

import (
	"context"
	"strings"

	"github.com/sevatrust/seva-donations/internal/api/validate"
	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/cache"
	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/models"
	repo "github.com/sevatrust/seva-donations/internal/repository"
)

// ContentService serves the static site sections (banners, quotes, gallery,
// videos, testimonials, social links).
type ContentService struct {
	content repo.Content
	views   *cache.Views
	audit   *Auditor
}

func NewContentService(r repo.Content, v *cache.Views, a *Auditor) *ContentService {
	return &ContentService{content: r, views: v, audit: a}
}

type ContentInput struct {
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"max=5000"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
	LinkURL   string `json:"link_url" validate:"omitempty,url"`
	Author    string `json:"author" validate:"max=120"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

func contentTag(kind models.ContentKind) string { return cache.TagContent + ":" + string(kind) }

func checkKind(kind models.ContentKind) error {
	if !kind.Valid() {
		return apperr.NotFound("unknown content section")
	}
	return nil
}

func (in ContentInput) check(kind models.ContentKind) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	switch kind {
	case models.ContentGallery, models.ContentBanners:
		if in.ImageURL == "" {
			return fieldErr("image_url", "required")
		}
	case models.ContentVideos, models.ContentSocialLinks:
		if in.LinkURL == "" {
			return fieldErr("link_url", "required")
		}
	}
	return nil
}

func (s *ContentService) List(ctx context.Context, kind models.ContentKind, activeOnly bool) ([]models.ContentItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if !activeOnly {
		return s.content.List(ctx, kind, false)
	}
	return cache.Fetch(ctx, s.views, "content:"+string(kind)+":active", []string{contentTag(kind)},
		func(ctx context.Context) ([]models.ContentItem, error) { return s.content.List(ctx, kind, true) })
}

func (s *ContentService) Get(ctx context.Context, kind models.ContentKind, id int64, includeInactive bool) (models.ContentItem, error) {
	if err := checkKind(kind); err != nil {
		return models.ContentItem{}, err
	}
	it, err := s.content.GetByID(ctx, kind, id)
	if err != nil {
		return it, err
	}
	if !it.IsActive && !includeInactive {
		return models.ContentItem{}, apperr.NotFound(string(kind) + " item not found")
	}
	return it, nil
}

func (s *ContentService) Create(ctx context.Context, kind models.ContentKind, in ContentInput) (models.ContentItem, error) {
	if err := checkKind(kind); err != nil {
		return models.ContentItem{}, err
	}
	if err := in.check(kind); err != nil {
		return models.ContentItem{}, err
	}
	it, err := s.content.Create(ctx, models.ContentItem{
		Kind:      kind,
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		ImageURL:  in.ImageURL,
		LinkURL:   in.LinkURL,
		Author:    in.Author,
		SortOrder: in.SortOrder,
		IsActive:  boolOr(in.IsActive, true),
	})
	if err != nil {
		return it, err
	}
	s.changed(ctx, kind, it.ID, "created")
	return it, nil
}

func (s *ContentService) Update(ctx context.Context, kind models.ContentKind, id int64, in ContentInput) (models.ContentItem, error) {
	if err := checkKind(kind); err != nil {
		return models.ContentItem{}, err
	}
	if err := in.check(kind); err != nil {
		return models.ContentItem{}, err
	}
	cur, err := s.content.GetByID(ctx, kind, id)
	if err != nil {
		return cur, err
	}
	cur.Title = strings.TrimSpace(in.Title)
	cur.Body = in.Body
	cur.ImageURL = in.ImageURL
	cur.LinkURL = in.LinkURL
	cur.Author = in.Author
	cur.SortOrder = in.SortOrder
	cur.IsActive = boolOr(in.IsActive, cur.IsActive)

	it, err := s.content.Update(ctx, cur)
	if err != nil {
		return it, err
	}
	s.changed(ctx, kind, it.ID, "updated")
	return it, nil
}

func (s *ContentService) Delete(ctx context.Context, kind models.ContentKind, id int64) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if err := s.content.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.changed(ctx, kind, id, "deleted")
	return nil
}

func (s *ContentService) changed(ctx context.Context, kind models.ContentKind, id int64, action string) {
	if err := s.views.Invalidate(ctx, contentTag(kind)); err != nil {
		logger.FromContext(ctx).Error("cache invalidation failed", "kind", kind, "err", err)
	}
	s.audit.Record(ctx, string(kind), id, action, nil)
}

// ----------------- contact messages -----------------

type ContactService struct {
	messages repo.ContactMessages
	audit    *Auditor
}

func NewContactService(r repo.ContactMessages, a *Auditor) *ContactService {
	return &ContactService{messages: r, audit: a}
}

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,min=7,max=15"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) (models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := validate.Struct(in); err != nil {
		return models.ContactMessage{}, err
	}
	m, err := s.messages.Create(ctx, models.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   strings.TrimSpace(in.Phone),
		Subject: strings.TrimSpace(in.Subject),
		Message: in.Message,
	})
	if err != nil {
		return m, err
	}
	logger.FromContext(ctx).Info("contact message received", "id", m.ID)
	return m, nil
}

func (s *ContactService) List(ctx context.Context, limit, offset int) ([]models.ContactMessage, error) {
	return s.messages.List(ctx, limit, offset)
}

func (s *ContactService) Get(ctx context.Context, id int64) (models.ContactMessage, error) {
	return s.messages.GetByID(ctx, id)
}

func (s *ContactService) MarkRead(ctx context.Context, id int64) error {
	if err := s.messages.MarkRead(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "contact_message", id, "read", nil)
	return nil
}

func (s *ContactService) Delete(ctx context.Context, id int64) error {
	if err := s.messages.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "contact_message", id, "deleted", nil)
	return nil
}
