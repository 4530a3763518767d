package services

import (
	"context"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

type auditService struct {
	repo   ports.AuditRepository
	logger *logger.Logger
}

func NewAuditService(repo ports.AuditRepository, logger *logger.Logger) ports.AuditService {
	return &auditService{repo: repo, logger: logger}
}

// Record persists an audit entry. Audit failures are logged, never returned:
// the action being audited must not fail because of bookkeeping.
func (s *auditService) Record(ctx context.Context, entry domain.AuditLog) {
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Errorw("audit_record_failed", "action", entry.Action, "error", err)
	}
}

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 500
)

// List returns the newest entries first. The limit is clamped so a bad query
// parameter cannot pull the whole table.
func (s *auditService) List(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = auditDefaultLimit
	}
	if limit > auditMaxLimit {
		limit = auditMaxLimit
	}
	return s.repo.List(ctx, limit)
}
