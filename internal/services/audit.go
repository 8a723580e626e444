package services

import (
	"context"
	"fmt"

	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/models"
	repo "github.com/sevatrust/seva-donations/internal/repository"
)

// Auditor writes audit rows. A failed write is logged and never fails the caller.
type Auditor struct{ r repo.AuditLogs }

func NewAuditor(r repo.AuditLogs) *Auditor { return &Auditor{r: r} }

func (a *Auditor) Record(ctx context.Context, entityType string, entityID any, action string, details map[string]any) {
	if a == nil || a.r == nil {
		return
	}
	var idp *string
	if entityID != nil {
		id := fmt.Sprint(entityID)
		idp = &id
	}
	err := a.r.Create(ctx, models.AuditLog{
		EntityType: entityType,
		EntityID:   idp,
		Action:     action,
		Details:    details,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("audit write failed", "entity", entityType, "action", action, "err", err)
	}
}
