package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/sevatrust/seva-donations/internal/repository"
)

type Repositories struct {
	Users           repo.Users
	Donations       repo.Donations
	Categories      repo.Categories
	Events          repo.Events
	Cards           repo.Cards
	Content         repo.Content
	ContactMessages repo.ContactMessages
	AuditLogs       repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:           &usersRepo{pool},
		Donations:       &donationsRepo{pool},
		Categories:      &categoriesRepo{pool},
		Events:          &eventsRepo{pool},
		Cards:           &cardsRepo{pool},
		Content:         &contentRepo{pool},
		ContactMessages: &contactRepo{pool},
		AuditLogs:       &auditLogsRepo{pool},
	}
}
