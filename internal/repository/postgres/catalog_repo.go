package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/models"
)

func encodeBank(b *models.BankDetails) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func decodeBank(raw []byte) (*models.BankDetails, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var b models.BankDetails
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ----------------- categories -----------------

type categoriesRepo struct{ pool *pgxpool.Pool }

const categoryCols = `id, name, slug, description, image_url, is_active, sort_order,
	uses_bank_details, bank_details, created_at, updated_at`

func scanCategory(row pgx.Row) (models.DonationCategory, error) {
	var (
		c   models.DonationCategory
		raw []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.IsActive, &c.SortOrder,
		&c.UsesBankDetails, &raw, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return c, err
	}
	b, err := decodeBank(raw)
	c.BankDetails = b
	return c, err
}

func (r *categoriesRepo) Create(ctx context.Context, c models.DonationCategory) (models.DonationCategory, error) {
	bank, err := encodeBank(c.BankDetails)
	if err != nil {
		return c, apperr.Internal("encode bank details", err)
	}
	out, err := scanCategory(r.pool.QueryRow(ctx, `
INSERT INTO donation_categories (name, slug, description, image_url, is_active, sort_order, uses_bank_details, bank_details)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING `+categoryCols,
		c.Name, c.Slug, c.Description, c.ImageURL, c.IsActive, c.SortOrder, c.UsesBankDetails, bank))
	return out, mapErr(err, "category")
}

func (r *categoriesRepo) GetByID(ctx context.Context, id int64) (models.DonationCategory, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryCols+` FROM donation_categories WHERE id=$1`, id))
	return c, mapErr(err, "category")
}

func (r *categoriesRepo) List(ctx context.Context, activeOnly bool) ([]models.DonationCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryCols+` FROM donation_categories
		WHERE ($1 = false OR is_active) ORDER BY sort_order, id`, activeOnly)
	if err != nil {
		return nil, mapErr(err, "category")
	}
	defer rows.Close()

	out := []models.DonationCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, mapErr(err, "category")
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err(), "category")
}

func (r *categoriesRepo) Update(ctx context.Context, c models.DonationCategory) (models.DonationCategory, error) {
	bank, err := encodeBank(c.BankDetails)
	if err != nil {
		return c, apperr.Internal("encode bank details", err)
	}
	out, err := scanCategory(r.pool.QueryRow(ctx, `
UPDATE donation_categories
   SET name=$2, slug=$3, description=$4, image_url=$5, is_active=$6, sort_order=$7,
       uses_bank_details=$8, bank_details=$9, updated_at=now()
 WHERE id=$1
RETURNING `+categoryCols,
		c.ID, c.Name, c.Slug, c.Description, c.ImageURL, c.IsActive, c.SortOrder, c.UsesBankDetails, bank))
	return out, mapErr(err, "category")
}

// Delete checks for dependent cards and deletes in one statement so a card inserted
// concurrently still trips the foreign key instead of being orphaned.
func (r *categoriesRepo) Delete(ctx context.Context, id int64) error {
	var deleted, dependents int64
	err := r.pool.QueryRow(ctx, `
WITH deps AS (SELECT count(*) AS n FROM donation_cards WHERE category_id = $1),
     del AS (
       DELETE FROM donation_categories
        WHERE id = $1 AND (SELECT n FROM deps) = 0
       RETURNING id)
SELECT (SELECT count(*) FROM del), (SELECT n FROM deps)`, id).Scan(&deleted, &dependents)
	if err != nil {
		return mapErr(err, "category")
	}
	if dependents > 0 {
		return apperr.Conflict("cannot delete category while donation cards exist")
	}
	if deleted == 0 {
		return apperr.NotFound("category not found")
	}
	return nil
}

// ----------------- events -----------------

type eventsRepo struct{ pool *pgxpool.Pool }

const eventCols = `id, title, slug, description, image_url, location, starts_at, ends_at, is_active,
	uses_bank_details, bank_details, created_at, updated_at`

func scanEvent(row pgx.Row) (models.Event, error) {
	var (
		e   models.Event
		raw []byte
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.Description, &e.ImageURL, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.IsActive, &e.UsesBankDetails, &raw, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	b, err := decodeBank(raw)
	e.BankDetails = b
	return e, err
}

func (r *eventsRepo) Create(ctx context.Context, e models.Event) (models.Event, error) {
	bank, err := encodeBank(e.BankDetails)
	if err != nil {
		return e, apperr.Internal("encode bank details", err)
	}
	out, err := scanEvent(r.pool.QueryRow(ctx, `
INSERT INTO events (title, slug, description, image_url, location, starts_at, ends_at, is_active, uses_bank_details, bank_details)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING `+eventCols,
		e.Title, e.Slug, e.Description, e.ImageURL, e.Location, e.StartsAt, e.EndsAt, e.IsActive, e.UsesBankDetails, bank))
	return out, mapErr(err, "event")
}

func (r *eventsRepo) GetByID(ctx context.Context, id int64) (models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventCols+` FROM events WHERE id=$1`, id))
	return e, mapErr(err, "event")
}

func (r *eventsRepo) List(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventCols+` FROM events
		WHERE ($1 = false OR is_active) ORDER BY starts_at DESC, id DESC`, activeOnly)
	if err != nil {
		return nil, mapErr(err, "event")
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, mapErr(err, "event")
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err(), "event")
}

func (r *eventsRepo) Update(ctx context.Context, e models.Event) (models.Event, error) {
	bank, err := encodeBank(e.BankDetails)
	if err != nil {
		return e, apperr.Internal("encode bank details", err)
	}
	out, err := scanEvent(r.pool.QueryRow(ctx, `
UPDATE events
   SET title=$2, slug=$3, description=$4, image_url=$5, location=$6, starts_at=$7, ends_at=$8,
       is_active=$9, uses_bank_details=$10, bank_details=$11, updated_at=now()
 WHERE id=$1
RETURNING `+eventCols,
		e.ID, e.Title, e.Slug, e.Description, e.ImageURL, e.Location, e.StartsAt, e.EndsAt, e.IsActive, e.UsesBankDetails, bank))
	return out, mapErr(err, "event")
}

func (r *eventsRepo) Delete(ctx context.Context, id int64) error {
	var deleted, dependents int64
	err := r.pool.QueryRow(ctx, `
WITH deps AS (SELECT count(*) AS n FROM donation_cards WHERE event_id = $1),
     del AS (
       DELETE FROM events
        WHERE id = $1 AND (SELECT n FROM deps) = 0
       RETURNING id)
SELECT (SELECT count(*) FROM del), (SELECT n FROM deps)`, id).Scan(&deleted, &dependents)
	if err != nil {
		return mapErr(err, "event")
	}
	if dependents > 0 {
		return apperr.Conflict("cannot delete event while donation cards exist")
	}
	if deleted == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// ----------------- donation cards -----------------

type cardsRepo struct{ pool *pgxpool.Pool }

const cardCols = `id, title, description, image_url, amount, category_id, event_id, is_active, sort_order, created_at, updated_at`

func scanCard(row pgx.Row) (models.DonationCard, error) {
	var c models.DonationCard
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &c.Amount, &c.CategoryID, &c.EventID,
		&c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *cardsRepo) Create(ctx context.Context, c models.DonationCard) (models.DonationCard, error) {
	out, err := scanCard(r.pool.QueryRow(ctx, `
INSERT INTO donation_cards (title, description, image_url, amount, category_id, event_id, is_active, sort_order)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING `+cardCols,
		c.Title, c.Description, c.ImageURL, c.Amount, c.CategoryID, c.EventID, c.IsActive, c.SortOrder))
	return out, mapErr(err, "donation card")
}

func (r *cardsRepo) GetByID(ctx context.Context, id int64) (models.DonationCard, error) {
	c, err := scanCard(r.pool.QueryRow(ctx, `SELECT `+cardCols+` FROM donation_cards WHERE id=$1`, id))
	return c, mapErr(err, "donation card")
}

func (r *cardsRepo) list(ctx context.Context, where string, args ...any) ([]models.DonationCard, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cardCols+` FROM donation_cards WHERE `+where+` ORDER BY sort_order, id`, args...)
	if err != nil {
		return nil, mapErr(err, "donation card")
	}
	defer rows.Close()

	out := []models.DonationCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, mapErr(err, "donation card")
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err(), "donation card")
}

func (r *cardsRepo) List(ctx context.Context, activeOnly bool) ([]models.DonationCard, error) {
	return r.list(ctx, `($1 = false OR is_active)`, activeOnly)
}

func (r *cardsRepo) ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]models.DonationCard, error) {
	return r.list(ctx, `category_id = $1 AND ($2 = false OR is_active)`, categoryID, activeOnly)
}

func (r *cardsRepo) ListByEvent(ctx context.Context, eventID int64, activeOnly bool) ([]models.DonationCard, error) {
	return r.list(ctx, `event_id = $1 AND ($2 = false OR is_active)`, eventID, activeOnly)
}

func (r *cardsRepo) Update(ctx context.Context, c models.DonationCard) (models.DonationCard, error) {
	out, err := scanCard(r.pool.QueryRow(ctx, `
UPDATE donation_cards
   SET title=$2, description=$3, image_url=$4, amount=$5, category_id=$6, event_id=$7,
       is_active=$8, sort_order=$9, updated_at=now()
 WHERE id=$1
RETURNING `+cardCols,
		c.ID, c.Title, c.Description, c.ImageURL, c.Amount, c.CategoryID, c.EventID, c.IsActive, c.SortOrder))
	return out, mapErr(err, "donation card")
}

func (r *cardsRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM donation_cards WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "donation card")
	}
	return notFoundIfNone(tag, "donation card")
}
