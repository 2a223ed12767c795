package dto

import "github.com/fieldtrack/practicum-api/internal/models"

// ResolvePendingSupervisorRequest carries the faculty decision on a
// provisional supervisor. Reason is mandatory for rejections.
type ResolvePendingSupervisorRequest struct {
	Decision models.SupervisorDecision `json:"decision" validate:"required"`
	Reason   string                    `json:"reason"`
}

// ResolvePendingSupervisorResult reports the outcome: the promoted supervisor
// profile on approval, or the rejected pending record otherwise.
type ResolvePendingSupervisorResult struct {
	Supervisor *models.SupervisorProfile `json:"supervisor,omitempty"`
	Pending    *models.PendingSupervisor `json:"pending,omitempty"`
}
