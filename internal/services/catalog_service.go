package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sevatrust/seva-donations/internal/api/validate"
	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/cache"
	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/models"
	repo "github.com/sevatrust/seva-donations/internal/repository"
)

// CatalogService manages categories, events and the donation cards attached to
// them. Public reads of active rows go through the view cache.
type CatalogService struct {
	categories repo.Categories
	events     repo.Events
	cards      repo.Cards
	views      *cache.Views
	audit      *Auditor
}

func NewCatalogService(c repo.Categories, e repo.Events, cards repo.Cards, v *cache.Views, a *Auditor) *CatalogService {
	return &CatalogService{categories: c, events: e, cards: cards, views: v, audit: a}
}

func (s *CatalogService) invalidate(ctx context.Context, tags ...string) {
	if err := s.views.Invalidate(ctx, tags...); err != nil {
		logger.FromContext(ctx).Error("cache invalidation failed", "tags", tags, "err", err)
	}
}

func fieldErr(field, msg string) error {
	return apperr.Validation("validation failed", apperr.FieldError{Field: field, Msg: msg})
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// ----------------- categories -----------------

type CategoryInput struct {
	Name            string              `json:"name" validate:"required,max=120"`
	Slug            string              `json:"slug" validate:"omitempty,max=140"`
	Description     string              `json:"description" validate:"max=5000"`
	ImageURL        string              `json:"image_url" validate:"omitempty,url"`
	IsActive        *bool               `json:"is_active"`
	SortOrder       int                 `json:"sort_order"`
	UsesBankDetails bool                `json:"uses_bank_details"`
	BankDetails     *models.BankDetails `json:"bank_details"`
}

func (in CategoryInput) check() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.UsesBankDetails && in.BankDetails == nil {
		return fieldErr("bank_details", "required when uses_bank_details is set")
	}
	if slugOf(in.Slug, in.Name) == "" {
		return fieldErr("slug", "must contain letters or digits")
	}
	return nil
}

func slugOf(slug, name string) string {
	if strings.TrimSpace(slug) != "" {
		return models.Slugify(slug)
	}
	return models.Slugify(name)
}

func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]models.DonationCategory, error) {
	if !activeOnly {
		return s.categories.List(ctx, false)
	}
	return cache.Fetch(ctx, s.views, "categories:active", []string{cache.TagCategories},
		func(ctx context.Context) ([]models.DonationCategory, error) { return s.categories.List(ctx, true) })
}

// GetCategory hides inactive categories unless includeInactive is set.
func (s *CatalogService) GetCategory(ctx context.Context, id int64, includeInactive bool) (models.DonationCategory, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return c, err
	}
	if !c.IsActive && !includeInactive {
		return models.DonationCategory{}, apperr.NotFound("category not found")
	}
	return c, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (models.DonationCategory, error) {
	if err := in.check(); err != nil {
		return models.DonationCategory{}, err
	}
	c, err := s.categories.Create(ctx, models.DonationCategory{
		Name:            strings.TrimSpace(in.Name),
		Slug:            slugOf(in.Slug, in.Name),
		Description:     in.Description,
		ImageURL:        in.ImageURL,
		IsActive:        boolOr(in.IsActive, true),
		SortOrder:       in.SortOrder,
		UsesBankDetails: in.UsesBankDetails,
		BankDetails:     in.BankDetails,
	})
	if err != nil {
		return c, err
	}
	s.invalidate(ctx, cache.TagCategories, cache.TagCards)
	s.audit.Record(ctx, "category", c.ID, "created", map[string]any{"name": c.Name})
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (models.DonationCategory, error) {
	if err := in.check(); err != nil {
		return models.DonationCategory{}, err
	}
	cur, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return cur, err
	}
	cur.Name = strings.TrimSpace(in.Name)
	cur.Slug = slugOf(in.Slug, in.Name)
	cur.Description = in.Description
	cur.ImageURL = in.ImageURL
	cur.IsActive = boolOr(in.IsActive, cur.IsActive)
	cur.SortOrder = in.SortOrder
	cur.UsesBankDetails = in.UsesBankDetails
	cur.BankDetails = in.BankDetails

	c, err := s.categories.Update(ctx, cur)
	if err != nil {
		return c, err
	}
	s.invalidate(ctx, cache.TagCategories, cache.TagCards)
	s.audit.Record(ctx, "category", c.ID, "updated", nil)
	return c, nil
}

// DeleteCategory refuses with Conflict while donation cards reference the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.TagCategories, cache.TagCards)
	s.audit.Record(ctx, "category", id, "deleted", nil)
	return nil
}

func (s *CatalogService) CategoryBankDetails(ctx context.Context, id int64) (models.BankDetails, error) {
	c, err := s.GetCategory(ctx, id, false)
	if err != nil {
		return models.BankDetails{}, err
	}
	if !c.UsesBankDetails || c.BankDetails == nil {
		return models.BankDetails{}, apperr.NotFound("bank details not available")
	}
	return *c.BankDetails, nil
}

func (s *CatalogService) CategoryCards(ctx context.Context, id int64) ([]models.DonationCard, error) {
	if _, err := s.GetCategory(ctx, id, false); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.views, "cards:category:"+strconv.FormatInt(id, 10), []string{cache.TagCards},
		func(ctx context.Context) ([]models.DonationCard, error) { return s.cards.ListByCategory(ctx, id, true) })
}

// ----------------- events -----------------

type EventInput struct {
	Title           string              `json:"title" validate:"required,max=200"`
	Slug            string              `json:"slug" validate:"omitempty,max=220"`
	Description     string              `json:"description" validate:"max=5000"`
	ImageURL        string              `json:"image_url" validate:"omitempty,url"`
	Location        string              `json:"location" validate:"max=200"`
	StartsAt        time.Time           `json:"starts_at" validate:"required"`
	EndsAt          *time.Time          `json:"ends_at"`
	IsActive        *bool               `json:"is_active"`
	UsesBankDetails bool                `json:"uses_bank_details"`
	BankDetails     *models.BankDetails `json:"bank_details"`
}

func (in EventInput) check() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return fieldErr("ends_at", "must not be before starts_at")
	}
	if in.UsesBankDetails && in.BankDetails == nil {
		return fieldErr("bank_details", "required when uses_bank_details is set")
	}
	if slugOf(in.Slug, in.Title) == "" {
		return fieldErr("slug", "must contain letters or digits")
	}
	return nil
}

func (s *CatalogService) ListEvents(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	if !activeOnly {
		return s.events.List(ctx, false)
	}
	return cache.Fetch(ctx, s.views, "events:active", []string{cache.TagEvents},
		func(ctx context.Context) ([]models.Event, error) { return s.events.List(ctx, true) })
}

func (s *CatalogService) GetEvent(ctx context.Context, id int64, includeInactive bool) (models.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return e, err
	}
	if !e.IsActive && !includeInactive {
		return models.Event{}, apperr.NotFound("event not found")
	}
	return e, nil
}

func (s *CatalogService) CreateEvent(ctx context.Context, in EventInput) (models.Event, error) {
	if err := in.check(); err != nil {
		return models.Event{}, err
	}
	e, err := s.events.Create(ctx, models.Event{
		Title:           strings.TrimSpace(in.Title),
		Slug:            slugOf(in.Slug, in.Title),
		Description:     in.Description,
		ImageURL:        in.ImageURL,
		Location:        in.Location,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		IsActive:        boolOr(in.IsActive, true),
		UsesBankDetails: in.UsesBankDetails,
		BankDetails:     in.BankDetails,
	})
	if err != nil {
		return e, err
	}
	s.invalidate(ctx, cache.TagEvents, cache.TagCards)
	s.audit.Record(ctx, "event", e.ID, "created", map[string]any{"title": e.Title})
	return e, nil
}

func (s *CatalogService) UpdateEvent(ctx context.Context, id int64, in EventInput) (models.Event, error) {
	if err := in.check(); err != nil {
		return models.Event{}, err
	}
	cur, err := s.events.GetByID(ctx, id)
	if err != nil {
		return cur, err
	}
	cur.Title = strings.TrimSpace(in.Title)
	cur.Slug = slugOf(in.Slug, in.Title)
	cur.Description = in.Description
	cur.ImageURL = in.ImageURL
	cur.Location = in.Location
	cur.StartsAt = in.StartsAt
	cur.EndsAt = in.EndsAt
	cur.IsActive = boolOr(in.IsActive, cur.IsActive)
	cur.UsesBankDetails = in.UsesBankDetails
	cur.BankDetails = in.BankDetails

	e, err := s.events.Update(ctx, cur)
	if err != nil {
		return e, err
	}
	s.invalidate(ctx, cache.TagEvents, cache.TagCards)
	s.audit.Record(ctx, "event", e.ID, "updated", nil)
	return e, nil
}

// DeleteEvent refuses with Conflict while donation cards reference the event.
func (s *CatalogService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.TagEvents, cache.TagCards)
	s.audit.Record(ctx, "event", id, "deleted", nil)
	return nil
}

func (s *CatalogService) EventBankDetails(ctx context.Context, id int64) (models.BankDetails, error) {
	e, err := s.GetEvent(ctx, id, false)
	if err != nil {
		return models.BankDetails{}, err
	}
	if !e.UsesBankDetails || e.BankDetails == nil {
		return models.BankDetails{}, apperr.NotFound("bank details not available")
	}
	return *e.BankDetails, nil
}

func (s *CatalogService) EventCards(ctx context.Context, id int64) ([]models.DonationCard, error) {
	if _, err := s.GetEvent(ctx, id, false); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.views, "cards:event:"+strconv.FormatInt(id, 10), []string{cache.TagCards},
		func(ctx context.Context) ([]models.DonationCard, error) { return s.cards.ListByEvent(ctx, id, true) })
}

// ----------------- cards -----------------

type CardInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	CategoryID  *int64 `json:"category_id" validate:"omitempty,gt=0"`
	EventID     *int64 `json:"event_id" validate:"omitempty,gt=0"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

// checkCard validates the input and that it names exactly one existing parent.
func (s *CatalogService) checkCard(ctx context.Context, in CardInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if (in.CategoryID == nil) == (in.EventID == nil) {
		return fieldErr("category_id", "exactly one of category_id or event_id is required")
	}
	var err error
	if in.CategoryID != nil {
		_, err = s.categories.GetByID(ctx, *in.CategoryID)
		err = refError(err, "category_id", "unknown category")
	} else {
		_, err = s.events.GetByID(ctx, *in.EventID)
		err = refError(err, "event_id", "unknown event")
	}
	return err
}

func (s *CatalogService) ListCards(ctx context.Context, activeOnly bool) ([]models.DonationCard, error) {
	if !activeOnly {
		return s.cards.List(ctx, false)
	}
	return cache.Fetch(ctx, s.views, "cards:active", []string{cache.TagCards},
		func(ctx context.Context) ([]models.DonationCard, error) { return s.cards.List(ctx, true) })
}

func (s *CatalogService) GetCard(ctx context.Context, id int64, includeInactive bool) (models.DonationCard, error) {
	c, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return c, err
	}
	if !c.IsActive && !includeInactive {
		return models.DonationCard{}, apperr.NotFound("donation card not found")
	}
	return c, nil
}

func (s *CatalogService) CreateCard(ctx context.Context, in CardInput) (models.DonationCard, error) {
	if err := s.checkCard(ctx, in); err != nil {
		return models.DonationCard{}, err
	}
	c, err := s.cards.Create(ctx, models.DonationCard{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		EventID:     in.EventID,
		IsActive:    boolOr(in.IsActive, true),
		SortOrder:   in.SortOrder,
	})
	if err != nil {
		return c, err
	}
	s.invalidate(ctx, cache.TagCards)
	s.audit.Record(ctx, "donation_card", c.ID, "created", nil)
	return c, nil
}

func (s *CatalogService) UpdateCard(ctx context.Context, id int64, in CardInput) (models.DonationCard, error) {
	if err := s.checkCard(ctx, in); err != nil {
		return models.DonationCard{}, err
	}
	cur, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return cur, err
	}
	cur.Title = strings.TrimSpace(in.Title)
	cur.Description = in.Description
	cur.ImageURL = in.ImageURL
	cur.Amount = in.Amount
	cur.CategoryID = in.CategoryID
	cur.EventID = in.EventID
	cur.IsActive = boolOr(in.IsActive, cur.IsActive)
	cur.SortOrder = in.SortOrder

	c, err := s.cards.Update(ctx, cur)
	if err != nil {
		return c, err
	}
	s.invalidate(ctx, cache.TagCards)
	s.audit.Record(ctx, "donation_card", c.ID, "updated", nil)
	return c, nil
}

func (s *CatalogService) DeleteCard(ctx context.Context, id int64) error {
	if err := s.cards.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.TagCards)
	s.audit.Record(ctx, "donation_card", id, "deleted", nil)
	return nil
}
