package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sevatrust/seva-donations/internal/models"
)

type donationsRepo struct{ pool *pgxpool.Pool }

const donationCols = `id, txn_id, amount, donor_name, email, phone, pan, message,
	category_id, event_id, user_id, status, payment_id, payment_method, error_message,
	receipt_sent, notification_sent, created_at, updated_at, completed_at`

func scanDonation(row pgx.Row) (models.Donation, error) {
	var d models.Donation
	err := row.Scan(&d.ID, &d.TxnID, &d.Amount, &d.DonorName, &d.Email, &d.Phone, &d.PAN, &d.Message,
		&d.CategoryID, &d.EventID, &d.UserID, &d.Status, &d.PaymentID, &d.PaymentMethod, &d.ErrorMessage,
		&d.ReceiptSent, &d.NotificationSent, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt)
	return d, err
}

func (r *donationsRepo) Create(ctx context.Context, d models.Donation) (models.Donation, error) {
	q := `
INSERT INTO donations (
  txn_id, amount, donor_name, email, phone, pan, message, category_id, event_id, user_id, status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'pending')
RETURNING ` + donationCols
	out, err := scanDonation(r.pool.QueryRow(ctx, q,
		d.TxnID, d.Amount, d.DonorName, d.Email, d.Phone, d.PAN, d.Message, d.CategoryID, d.EventID, d.UserID))
	return out, mapErr(err, "donation")
}

func (r *donationsRepo) GetByID(ctx context.Context, id int64) (models.Donation, error) {
	d, err := scanDonation(r.pool.QueryRow(ctx, `SELECT `+donationCols+` FROM donations WHERE id=$1`, id))
	return d, mapErr(err, "donation")
}

func (r *donationsRepo) GetByTxnID(ctx context.Context, txnID string) (models.Donation, error) {
	d, err := scanDonation(r.pool.QueryRow(ctx, `SELECT `+donationCols+` FROM donations WHERE txn_id=$1`, txnID))
	return d, mapErr(err, "donation")
}

func (r *donationsRepo) List(ctx context.Context, f models.DonationFilter) ([]models.Donation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.CategoryID != nil {
		add("category_id = ?", *f.CategoryID)
	}
	if f.EventID != nil {
		add("event_id = ?", *f.EventID)
	}

	q := `SELECT ` + donationCols + ` FROM donations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, "donation")
	}
	defer rows.Close()

	out := []models.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, mapErr(err, "donation")
		}
		out = append(out, d)
	}
	return out, mapErr(rows.Err(), "donation")
}

// Complete is a conditional update: only a pending row changes, so concurrent or
// repeated callbacks for the same donation apply at most once.
func (r *donationsRepo) Complete(ctx context.Context, id int64, o models.DonationOutcome) (models.Donation, bool, error) {
	q := `
UPDATE donations
   SET status = $2,
       payment_id = NULLIF($3, ''),
       payment_method = NULLIF($4, ''),
       error_message = NULLIF($5, ''),
       updated_at = now(),
       completed_at = now()
 WHERE id = $1 AND status = 'pending'
RETURNING ` + donationCols
	d, err := scanDonation(r.pool.QueryRow(ctx, q, id, o.Status, o.PaymentID, o.PaymentMethod, o.ErrorMessage))
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Donation{}, false, mapErr(err, "donation")
	}
	// Zero rows: either already terminal (duplicate delivery) or missing.
	d, err = r.GetByID(ctx, id)
	return d, false, err
}

func (r *donationsRepo) MarkReceiptSent(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE donations SET receipt_sent = true, notification_sent = true, updated_at = now() WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "donation")
	}
	return notFoundIfNone(tag, "donation")
}

func (r *donationsRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM donations WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "donation")
	}
	return notFoundIfNone(tag, "donation")
}
