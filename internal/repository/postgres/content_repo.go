package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/models"
)

// contentRepo serves every static section; each kind has its own table of the same shape.
type contentRepo struct{ pool *pgxpool.Pool }

var contentTables = map[models.ContentKind]string{
	models.ContentBanners:      "banners",
	models.ContentQuotes:       "quotes",
	models.ContentGallery:      "gallery_items",
	models.ContentVideos:       "videos",
	models.ContentTestimonials: "testimonials",
	models.ContentSocialLinks:  "social_links",
}

const contentCols = `id, title, body, image_url, link_url, author, sort_order, is_active, created_at, updated_at`

func contentTable(kind models.ContentKind) (string, error) {
	t, ok := contentTables[kind]
	if !ok {
		return "", apperr.NotFound(fmt.Sprintf("unknown content kind %q", kind))
	}
	return t, nil
}

func scanContent(row pgx.Row, kind models.ContentKind) (models.ContentItem, error) {
	it := models.ContentItem{Kind: kind}
	err := row.Scan(&it.ID, &it.Title, &it.Body, &it.ImageURL, &it.LinkURL, &it.Author, &it.SortOrder,
		&it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *contentRepo) Create(ctx context.Context, it models.ContentItem) (models.ContentItem, error) {
	table, err := contentTable(it.Kind)
	if err != nil {
		return it, err
	}
	out, err := scanContent(r.pool.QueryRow(ctx,
		`INSERT INTO `+table+` (title, body, image_url, link_url, author, sort_order, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+contentCols,
		it.Title, it.Body, it.ImageURL, it.LinkURL, it.Author, it.SortOrder, it.IsActive), it.Kind)
	return out, mapErr(err, string(it.Kind))
}

func (r *contentRepo) GetByID(ctx context.Context, kind models.ContentKind, id int64) (models.ContentItem, error) {
	table, err := contentTable(kind)
	if err != nil {
		return models.ContentItem{}, err
	}
	it, err := scanContent(r.pool.QueryRow(ctx, `SELECT `+contentCols+` FROM `+table+` WHERE id=$1`, id), kind)
	return it, mapErr(err, string(kind))
}

func (r *contentRepo) List(ctx context.Context, kind models.ContentKind, activeOnly bool) ([]models.ContentItem, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+contentCols+` FROM `+table+` WHERE ($1 = false OR is_active) ORDER BY sort_order, id`, activeOnly)
	if err != nil {
		return nil, mapErr(err, string(kind))
	}
	defer rows.Close()

	out := []models.ContentItem{}
	for rows.Next() {
		it, err := scanContent(rows, kind)
		if err != nil {
			return nil, mapErr(err, string(kind))
		}
		out = append(out, it)
	}
	return out, mapErr(rows.Err(), string(kind))
}

func (r *contentRepo) Update(ctx context.Context, it models.ContentItem) (models.ContentItem, error) {
	table, err := contentTable(it.Kind)
	if err != nil {
		return it, err
	}
	out, err := scanContent(r.pool.QueryRow(ctx,
		`UPDATE `+table+`
		    SET title=$2, body=$3, image_url=$4, link_url=$5, author=$6, sort_order=$7, is_active=$8, updated_at=now()
		  WHERE id=$1 RETURNING `+contentCols,
		it.ID, it.Title, it.Body, it.ImageURL, it.LinkURL, it.Author, it.SortOrder, it.IsActive), it.Kind)
	return out, mapErr(err, string(it.Kind))
}

func (r *contentRepo) Delete(ctx context.Context, kind models.ContentKind, id int64) error {
	table, err := contentTable(kind)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, string(kind))
	}
	return notFoundIfNone(tag, string(kind))
}

// ----------------- contact messages -----------------

type contactRepo struct{ pool *pgxpool.Pool }

const contactCols = `id, name, email, phone, subject, message, is_read, created_at`

func scanContact(row pgx.Row) (models.ContactMessage, error) {
	var m models.ContactMessage
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message, &m.IsRead, &m.CreatedAt)
	return m, err
}

func (r *contactRepo) Create(ctx context.Context, m models.ContactMessage) (models.ContactMessage, error) {
	out, err := scanContact(r.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (name, email, phone, subject, message) VALUES ($1,$2,$3,$4,$5) RETURNING `+contactCols,
		m.Name, m.Email, m.Phone, m.Subject, m.Message))
	return out, mapErr(err, "contact message")
}

func (r *contactRepo) GetByID(ctx context.Context, id int64) (models.ContactMessage, error) {
	m, err := scanContact(r.pool.QueryRow(ctx, `SELECT `+contactCols+` FROM contact_messages WHERE id=$1`, id))
	return m, mapErr(err, "contact message")
}

func (r *contactRepo) List(ctx context.Context, limit, offset int) ([]models.ContactMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactCols+` FROM contact_messages ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapErr(err, "contact message")
	}
	defer rows.Close()

	out := []models.ContactMessage{}
	for rows.Next() {
		m, err := scanContact(rows)
		if err != nil {
			return nil, mapErr(err, "contact message")
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err(), "contact message")
}

func (r *contactRepo) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE contact_messages SET is_read = true WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "contact message")
	}
	return notFoundIfNone(tag, "contact message")
}

func (r *contactRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contact_messages WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "contact message")
	}
	return notFoundIfNone(tag, "contact message")
}
