package service

import (
	"context"

	"github.com/fieldtrack/practicum-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}
