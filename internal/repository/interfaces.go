package repository

import (
	"context"

	"github.com/sevatrust/seva-donations/internal/models"
)

// Implementations return apperr NotFound for missing rows and apperr Conflict for
// unique or foreign-key violations.

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// Update stores profile fields, and the password hash too when u.PasswordHash
	// is set, in one write.
	Update(ctx context.Context, u models.User) (models.User, error)
	Delete(ctx context.Context, id int64) error
}

type Donations interface {
	// Create inserts a pending donation in a single statement.
	Create(ctx context.Context, d models.Donation) (models.Donation, error)
	GetByID(ctx context.Context, id int64) (models.Donation, error)
	GetByTxnID(ctx context.Context, txnID string) (models.Donation, error)
	List(ctx context.Context, f models.DonationFilter) ([]models.Donation, error)
	// Complete moves a pending donation to a terminal status. applied is false when the
	// donation was no longer pending; the returned row is then the stored one, untouched.
	Complete(ctx context.Context, id int64, out models.DonationOutcome) (d models.Donation, applied bool, err error)
	MarkReceiptSent(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type Categories interface {
	Create(ctx context.Context, c models.DonationCategory) (models.DonationCategory, error)
	GetByID(ctx context.Context, id int64) (models.DonationCategory, error)
	List(ctx context.Context, activeOnly bool) ([]models.DonationCategory, error)
	Update(ctx context.Context, c models.DonationCategory) (models.DonationCategory, error)
	// Delete refuses with Conflict while donation cards reference the category.
	Delete(ctx context.Context, id int64) error
}

type Events interface {
	Create(ctx context.Context, e models.Event) (models.Event, error)
	GetByID(ctx context.Context, id int64) (models.Event, error)
	List(ctx context.Context, activeOnly bool) ([]models.Event, error)
	Update(ctx context.Context, e models.Event) (models.Event, error)
	// Delete refuses with Conflict while donation cards reference the event.
	Delete(ctx context.Context, id int64) error
}

type Cards interface {
	Create(ctx context.Context, c models.DonationCard) (models.DonationCard, error)
	GetByID(ctx context.Context, id int64) (models.DonationCard, error)
	List(ctx context.Context, activeOnly bool) ([]models.DonationCard, error)
	ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]models.DonationCard, error)
	ListByEvent(ctx context.Context, eventID int64, activeOnly bool) ([]models.DonationCard, error)
	Update(ctx context.Context, c models.DonationCard) (models.DonationCard, error)
	Delete(ctx context.Context, id int64) error
}

type Content interface {
	Create(ctx context.Context, it models.ContentItem) (models.ContentItem, error)
	GetByID(ctx context.Context, kind models.ContentKind, id int64) (models.ContentItem, error)
	List(ctx context.Context, kind models.ContentKind, activeOnly bool) ([]models.ContentItem, error)
	Update(ctx context.Context, it models.ContentItem) (models.ContentItem, error)
	Delete(ctx context.Context, kind models.ContentKind, id int64) error
}

type ContactMessages interface {
	Create(ctx context.Context, m models.ContactMessage) (models.ContactMessage, error)
	GetByID(ctx context.Context, id int64) (models.ContactMessage, error)
	List(ctx context.Context, limit, offset int) ([]models.ContactMessage, error)
	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
