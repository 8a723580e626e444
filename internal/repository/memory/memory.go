// Package memory implements the repository interfaces over maps. It exists for tests:
// construct a fresh Store per test and seed it explicitly.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/repository"
)

type Store struct {
	mu sync.Mutex

	seq        int64
	users      map[int64]models.User
	donations  map[int64]models.Donation
	categories map[int64]models.DonationCategory
	events     map[int64]models.Event
	cards      map[int64]models.DonationCard
	content    map[models.ContentKind]map[int64]models.ContentItem
	contacts   map[int64]models.ContactMessage
	audit      []models.AuditLog

	// Now is used for timestamps; tests may pin it.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		users:      map[int64]models.User{},
		donations:  map[int64]models.Donation{},
		categories: map[int64]models.DonationCategory{},
		events:     map[int64]models.Event{},
		cards:      map[int64]models.DonationCard{},
		content:    map[models.ContentKind]map[int64]models.ContentItem{},
		contacts:   map[int64]models.ContactMessage{},
		Now:        time.Now,
	}
}

func (s *Store) nextID() int64 { s.seq++; return s.seq }

type (
	usersRepo      struct{ s *Store }
	donationsRepo  struct{ s *Store }
	categoriesRepo struct{ s *Store }
	eventsRepo     struct{ s *Store }
	cardsRepo      struct{ s *Store }
	contentRepo    struct{ s *Store }
	contactRepo    struct{ s *Store }
	auditRepo      struct{ s *Store }
)

func (s *Store) Users() repository.Users                     { return usersRepo{s} }
func (s *Store) Donations() repository.Donations             { return donationsRepo{s} }
func (s *Store) Categories() repository.Categories           { return categoriesRepo{s} }
func (s *Store) Events() repository.Events                   { return eventsRepo{s} }
func (s *Store) Cards() repository.Cards                     { return cardsRepo{s} }
func (s *Store) Content() repository.Content                 { return contentRepo{s} }
func (s *Store) ContactMessages() repository.ContactMessages { return contactRepo{s} }
func (s *Store) AuditLogs() repository.AuditLogs             { return auditRepo{s} }

func sortedValues[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []T{}
	for _, id := range ids {
		if keep == nil || keep(m[id]) {
			out = append(out, m[id])
		}
	}
	return out
}

// ----------------- users -----------------

func (s *Store) emailTaken(email string, self int64) bool {
	for id, ex := range s.users {
		if id != self && strings.EqualFold(ex.Email, email) {
			return true
		}
	}
	return false
}

func (r usersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.emailTaken(u.Email, 0) {
		return models.User{}, apperr.Conflict("user already exists")
	}
	u.ID = r.s.nextID()
	u.CreatedAt, u.UpdatedAt = r.s.Now(), r.s.Now()
	r.s.users[u.ID] = u
	return u, nil
}

func (r usersRepo) GetByID(_ context.Context, id int64) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return u, apperr.NotFound("user not found")
	}
	return u, nil
}

func (r usersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user not found")
}

func (r usersRepo) List(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.users, nil), nil
}

func (r usersRepo) Update(_ context.Context, u models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.users[u.ID]
	if !ok {
		return u, apperr.NotFound("user not found")
	}
	if r.s.emailTaken(u.Email, u.ID) {
		return u, apperr.Conflict("user already exists")
	}
	ex.Username, ex.Email, ex.Role, ex.IsActive = u.Username, u.Email, u.Role, u.IsActive
	if u.PasswordHash != "" {
		ex.PasswordHash = u.PasswordHash
	}
	ex.UpdatedAt = r.s.Now()
	r.s.users[u.ID] = ex
	return ex, nil
}

func (r usersRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(r.s.users, id)
	for did, d := range r.s.donations {
		if d.UserID != nil && *d.UserID == id {
			d.UserID = nil
			r.s.donations[did] = d
		}
	}
	return nil
}

// ----------------- donations -----------------

func (r donationsRepo) Create(_ context.Context, d models.Donation) (models.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.donations {
		if ex.TxnID == d.TxnID {
			return models.Donation{}, apperr.Conflict("donation already exists")
		}
	}
	d.ID = r.s.nextID()
	d.Status = models.DonationPending
	d.CreatedAt, d.UpdatedAt = r.s.Now(), r.s.Now()
	r.s.donations[d.ID] = d
	return d, nil
}

func (r donationsRepo) GetByID(_ context.Context, id int64) (models.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok {
		return d, apperr.NotFound("donation not found")
	}
	return d, nil
}

func (r donationsRepo) GetByTxnID(_ context.Context, txnID string) (models.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.donations {
		if d.TxnID == txnID {
			return d, nil
		}
	}
	return models.Donation{}, apperr.NotFound("donation not found")
}

func (r donationsRepo) List(_ context.Context, f models.DonationFilter) ([]models.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := sortedValues(r.s.donations, func(d models.Donation) bool {
		if f.Status != "" && d.Status != f.Status {
			return false
		}
		if f.CategoryID != nil && (d.CategoryID == nil || *d.CategoryID != *f.CategoryID) {
			return false
		}
		if f.EventID != nil && (d.EventID == nil || *d.EventID != *f.EventID) {
			return false
		}
		return true
	})
	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if f.Offset >= len(all) {
		return []models.Donation{}, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, nil
}

func (r donationsRepo) Complete(_ context.Context, id int64, o models.DonationOutcome) (models.Donation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok {
		return d, false, apperr.NotFound("donation not found")
	}
	if d.Status != models.DonationPending {
		return d, false, nil
	}
	now := r.s.Now()
	d.Status = o.Status
	d.PaymentID = nonEmpty(o.PaymentID)
	d.PaymentMethod = nonEmpty(o.PaymentMethod)
	d.ErrorMessage = nonEmpty(o.ErrorMessage)
	d.UpdatedAt, d.CompletedAt = now, &now
	r.s.donations[id] = d
	return d, true, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r donationsRepo) MarkReceiptSent(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok {
		return apperr.NotFound("donation not found")
	}
	d.ReceiptSent, d.NotificationSent = true, true
	r.s.donations[id] = d
	return nil
}

func (r donationsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.donations[id]; !ok {
		return apperr.NotFound("donation not found")
	}
	delete(r.s.donations, id)
	return nil
}

// ----------------- categories -----------------

func (s *Store) slugTaken(slug string, self int64, isEvent bool) bool {
	if isEvent {
		for id, e := range s.events {
			if e.Slug == slug && id != self {
				return true
			}
		}
		return false
	}
	for id, c := range s.categories {
		if c.Slug == slug && id != self {
			return true
		}
	}
	return false
}

func (r categoriesRepo) Create(_ context.Context, c models.DonationCategory) (models.DonationCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.slugTaken(c.Slug, 0, false) {
		return c, apperr.Conflict("category already exists")
	}
	c.ID = r.s.nextID()
	c.CreatedAt, c.UpdatedAt = r.s.Now(), r.s.Now()
	r.s.categories[c.ID] = c
	return c, nil
}

func (r categoriesRepo) GetByID(_ context.Context, id int64) (models.DonationCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return c, apperr.NotFound("category not found")
	}
	return c, nil
}

func (r categoriesRepo) List(_ context.Context, activeOnly bool) ([]models.DonationCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := sortedValues(r.s.categories, func(c models.DonationCategory) bool { return !activeOnly || c.IsActive })
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r categoriesRepo) Update(_ context.Context, c models.DonationCategory) (models.DonationCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.categories[c.ID]
	if !ok {
		return c, apperr.NotFound("category not found")
	}
	if r.s.slugTaken(c.Slug, c.ID, false) {
		return c, apperr.Conflict("category already exists")
	}
	c.CreatedAt, c.UpdatedAt = ex.CreatedAt, r.s.Now()
	r.s.categories[c.ID] = c
	return c, nil
}

func (r categoriesRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return apperr.NotFound("category not found")
	}
	for _, card := range r.s.cards {
		if card.CategoryID != nil && *card.CategoryID == id {
			return apperr.Conflict("cannot delete category while donation cards exist")
		}
	}
	delete(r.s.categories, id)
	for did, d := range r.s.donations {
		if d.CategoryID != nil && *d.CategoryID == id {
			d.CategoryID = nil
			r.s.donations[did] = d
		}
	}
	return nil
}

// ----------------- events -----------------

func (r eventsRepo) Create(_ context.Context, e models.Event) (models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.slugTaken(e.Slug, 0, true) {
		return e, apperr.Conflict("event already exists")
	}
	e.ID = r.s.nextID()
	e.CreatedAt, e.UpdatedAt = r.s.Now(), r.s.Now()
	r.s.events[e.ID] = e
	return e, nil
}

func (r eventsRepo) GetByID(_ context.Context, id int64) (models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return e, apperr.NotFound("event not found")
	}
	return e, nil
}

func (r eventsRepo) List(_ context.Context, activeOnly bool) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := sortedValues(r.s.events, func(e models.Event) bool { return !activeOnly || e.IsActive })
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}

func (r eventsRepo) Update(_ context.Context, e models.Event) (models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.events[e.ID]
	if !ok {
		return e, apperr.NotFound("event not found")
	}
	if r.s.slugTaken(e.Slug, e.ID, true) {
		return e, apperr.Conflict("event already exists")
	}
	e.CreatedAt, e.UpdatedAt = ex.CreatedAt, r.s.Now()
	r.s.events[e.ID] = e
	return e, nil
}

func (r eventsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return apperr.NotFound("event not found")
	}
	for _, card := range r.s.cards {
		if card.EventID != nil && *card.EventID == id {
			return apperr.Conflict("cannot delete event while donation cards exist")
		}
	}
	delete(r.s.events, id)
	for did, d := range r.s.donations {
		if d.EventID != nil && *d.EventID == id {
			d.EventID = nil
			r.s.donations[did] = d
		}
	}
	return nil
}

// ----------------- cards -----------------

func (s *Store) cardParentExists(c models.DonationCard) bool {
	if c.CategoryID != nil {
		_, ok := s.categories[*c.CategoryID]
		return ok
	}
	if c.EventID != nil {
		_, ok := s.events[*c.EventID]
		return ok
	}
	return false
}

func (r cardsRepo) Create(_ context.Context, c models.DonationCard) (models.DonationCard, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.cardParentExists(c) {
		return c, apperr.Conflict("donation card references a missing or dependent row")
	}
	c.ID = r.s.nextID()
	c.CreatedAt, c.UpdatedAt = r.s.Now(), r.s.Now()
	r.s.cards[c.ID] = c
	return c, nil
}

func (r cardsRepo) GetByID(_ context.Context, id int64) (models.DonationCard, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cards[id]
	if !ok {
		return c, apperr.NotFound("donation card not found")
	}
	return c, nil
}

func (r cardsRepo) filter(keep func(models.DonationCard) bool) []models.DonationCard {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := sortedValues(r.s.cards, keep)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func (r cardsRepo) List(_ context.Context, activeOnly bool) ([]models.DonationCard, error) {
	return r.filter(func(c models.DonationCard) bool { return !activeOnly || c.IsActive }), nil
}

func (r cardsRepo) ListByCategory(_ context.Context, categoryID int64, activeOnly bool) ([]models.DonationCard, error) {
	return r.filter(func(c models.DonationCard) bool {
		return c.CategoryID != nil && *c.CategoryID == categoryID && (!activeOnly || c.IsActive)
	}), nil
}

func (r cardsRepo) ListByEvent(_ context.Context, eventID int64, activeOnly bool) ([]models.DonationCard, error) {
	return r.filter(func(c models.DonationCard) bool {
		return c.EventID != nil && *c.EventID == eventID && (!activeOnly || c.IsActive)
	}), nil
}

func (r cardsRepo) Update(_ context.Context, c models.DonationCard) (models.DonationCard, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.cards[c.ID]
	if !ok {
		return c, apperr.NotFound("donation card not found")
	}
	if !r.s.cardParentExists(c) {
		return c, apperr.Conflict("donation card references a missing or dependent row")
	}
	c.CreatedAt, c.UpdatedAt = ex.CreatedAt, r.s.Now()
	r.s.cards[c.ID] = c
	return c, nil
}

func (r cardsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cards[id]; !ok {
		return apperr.NotFound("donation card not found")
	}
	delete(r.s.cards, id)
	return nil
}

// ----------------- content -----------------

func (r contentRepo) table(kind models.ContentKind) (map[int64]models.ContentItem, error) {
	if !kind.Valid() {
		return nil, apperr.NotFound("unknown content kind " + strconv.Quote(string(kind)))
	}
	t, ok := r.s.content[kind]
	if !ok {
		t = map[int64]models.ContentItem{}
		r.s.content[kind] = t
	}
	return t, nil
}

func (r contentRepo) Create(_ context.Context, it models.ContentItem) (models.ContentItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.table(it.Kind)
	if err != nil {
		return it, err
	}
	it.ID = r.s.nextID()
	it.CreatedAt, it.UpdatedAt = r.s.Now(), r.s.Now()
	t[it.ID] = it
	return it, nil
}

func (r contentRepo) GetByID(_ context.Context, kind models.ContentKind, id int64) (models.ContentItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.table(kind)
	if err != nil {
		return models.ContentItem{}, err
	}
	it, ok := t[id]
	if !ok {
		return it, apperr.NotFound(string(kind) + " not found")
	}
	return it, nil
}

func (r contentRepo) List(_ context.Context, kind models.ContentKind, activeOnly bool) ([]models.ContentItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.table(kind)
	if err != nil {
		return nil, err
	}
	out := sortedValues(t, func(it models.ContentItem) bool { return !activeOnly || it.IsActive })
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r contentRepo) Update(_ context.Context, it models.ContentItem) (models.ContentItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.table(it.Kind)
	if err != nil {
		return it, err
	}
	ex, ok := t[it.ID]
	if !ok {
		return it, apperr.NotFound(string(it.Kind) + " not found")
	}
	it.CreatedAt, it.UpdatedAt = ex.CreatedAt, r.s.Now()
	t[it.ID] = it
	return it, nil
}

func (r contentRepo) Delete(_ context.Context, kind models.ContentKind, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.table(kind)
	if err != nil {
		return err
	}
	if _, ok := t[id]; !ok {
		return apperr.NotFound(string(kind) + " not found")
	}
	delete(t, id)
	return nil
}

// ----------------- contact messages -----------------

func (r contactRepo) Create(_ context.Context, m models.ContactMessage) (models.ContactMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.Now()
	r.s.contacts[m.ID] = m
	return m, nil
}

func (r contactRepo) GetByID(_ context.Context, id int64) (models.ContactMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.contacts[id]
	if !ok {
		return m, apperr.NotFound("contact message not found")
	}
	return m, nil
}

func (r contactRepo) List(_ context.Context, limit, offset int) ([]models.ContactMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := sortedValues(r.s.contacts, nil)
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return []models.ContactMessage{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r contactRepo) MarkRead(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.contacts[id]
	if !ok {
		return apperr.NotFound("contact message not found")
	}
	m.IsRead = true
	r.s.contacts[id] = m
	return nil
}

func (r contactRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contacts[id]; !ok {
		return apperr.NotFound("contact message not found")
	}
	delete(r.s.contacts, id)
	return nil
}

// ----------------- audit -----------------

func (r auditRepo) Create(_ context.Context, l models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.nextID()
	l.CreatedAt = r.s.Now()
	r.s.audit = append(r.s.audit, l)
	return nil
}

// AuditEntries returns a copy of the audit log, safe to call while workers run.
func (s *Store) AuditEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}
