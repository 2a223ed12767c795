package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/pkg/jobs"
)

// Mailer delivers a single outbound message. The default implementation just
// logs; a real SMTP or provider client drops in behind the same interface.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes outbound mail to the structured log instead of sending it.
type LogMailer struct {
	Logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("outbound notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

type recipientDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type supervisorProfileDirectory interface {
	GetProfileByID(ctx context.Context, id string) (*models.SupervisorProfile, error)
}

type notificationPayload struct {
	To      string
	Subject string
	Body    string
}

// NotificationService fans workflow events out to recipients through a
// background queue so request handlers never block on delivery.
type NotificationService struct {
	queue    *jobs.Queue
	mailer   Mailer
	users    recipientDirectory
	profiles supervisorProfileDirectory
	logger   *zap.Logger
}

// NewNotificationService builds the service and its dispatch queue. Call
// Start before use and Stop on shutdown.
func NewNotificationService(
	mailer Mailer,
	users recipientDirectory,
	profiles supervisorProfileDirectory,
	cfg jobs.QueueConfig,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = &LogMailer{Logger: logger}
	}
	s := &NotificationService{
		mailer:   mailer,
		users:    users,
		profiles: profiles,
		logger:   logger,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue and stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.mailer.Send(ctx, payload.To, payload.Subject, payload.Body)
}

func (s *NotificationService) enqueue(to, subject, body string) {
	if to == "" {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "email",
		Payload: notificationPayload{To: to, Subject: subject, Body: body},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.Error(err), zap.String("subject", subject))
	}
}

func (s *NotificationService) userEmail(ctx context.Context, userID string) string {
	if s.users == nil || userID == "" {
		return ""
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to resolve notification recipient", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	return user.Email
}

func (s *NotificationService) supervisorEmail(ctx context.Context, profileID string) string {
	if s.profiles == nil || profileID == "" {
		return ""
	}
	profile, err := s.profiles.GetProfileByID(ctx, profileID)
	if err != nil {
		s.logger.Warn("failed to resolve supervisor recipient", zap.String("profile_id", profileID), zap.Error(err))
		return ""
	}
	return s.userEmail(ctx, profile.UserID)
}

// PlacementDecided notifies the student of an approval, rejection, or
// activation on their placement.
func (s *NotificationService) PlacementDecided(ctx context.Context, placement *models.Placement, action, reason string) {
	subject := fmt.Sprintf("Placement %s", action)
	body := fmt.Sprintf("Your placement %s has been %s.", placement.ID, action)
	if reason != "" {
		body = fmt.Sprintf("%s Reason: %s", body, reason)
	}
	s.enqueue(s.userEmail(ctx, placement.StudentID), subject, body)
}

// WeekSubmitted notifies the supervisor that entries await their review.
func (s *NotificationService) WeekSubmitted(ctx context.Context, placement *models.Placement, entries []models.TimesheetEntry) {
	if placement.SupervisorID == nil {
		return
	}
	subject := "Timesheet entries awaiting review"
	body := fmt.Sprintf("%d timesheet entries on placement %s are awaiting your review.", len(entries), placement.ID)
	s.enqueue(s.supervisorEmail(ctx, *placement.SupervisorID), subject, body)
}

// EntryDecided notifies the student of a review outcome, and the faculty
// member when an entry clears supervisor review.
func (s *NotificationService) EntryDecided(ctx context.Context, placement *models.Placement, entry *models.TimesheetEntry, stage string) {
	subject := fmt.Sprintf("Timesheet entry %s after %s review", entry.Status, stage)
	body := fmt.Sprintf("Entry %s on placement %s is now %s.", entry.ID, placement.ID, entry.Status)
	if entry.RejectionReason != nil {
		body = fmt.Sprintf("%s Reason: %s", body, *entry.RejectionReason)
	}
	s.enqueue(s.userEmail(ctx, entry.StudentID), subject, body)
	if entry.Status == models.TimesheetStatusPendingFaculty {
		s.enqueue(s.userEmail(ctx, placement.FacultyID), "Timesheet entry awaiting faculty review", body)
	}
}

// SupervisorProvisioned sends the promoted supervisor their initial
// credentials. The temporary password travels only through this message.
func (s *NotificationService) SupervisorProvisioned(_ context.Context, user *models.User, tempPassword string) {
	subject := "Your field supervisor account"
	body := fmt.Sprintf("An account has been created for %s. Temporary password: %s. Change it on first login.", user.Email, tempPassword)
	s.enqueue(user.Email, subject, body)
}

// SupervisorRejected informs the proposed supervisor contact of the decision.
func (s *NotificationService) SupervisorRejected(_ context.Context, pending *models.PendingSupervisor, reason string) {
	subject := "Supervisor request declined"
	body := fmt.Sprintf("The supervisor request for %s was declined. Reason: %s", pending.FullName, reason)
	s.enqueue(pending.Email, subject, body)
}

// ContractSent delivers the submission token to the agency recipient.
func (s *NotificationService) ContractSent(_ context.Context, contract *models.LearningContract, token string) {
	subject := "Learning contract to complete"
	body := fmt.Sprintf("Hello %s, a learning contract is ready for your agency. Submission token: %s", contract.RecipientName, token)
	s.enqueue(contract.RecipientEmail, subject, body)
}

// ContractSubmitted tells program staff a contract is ready for review.
func (s *NotificationService) ContractSubmitted(_ context.Context, contract *models.LearningContract) {
	s.logger.Info("learning contract submitted",
		zap.String("contract_id", contract.ID),
		zap.String("site_id", contract.SiteID),
	)
}

// SiteApproved confirms final approval to the site contact.
func (s *NotificationService) SiteApproved(_ context.Context, site *models.Site) {
	subject := "Site approved"
	body := fmt.Sprintf("%s has been approved to host field placements.", site.Name)
	s.enqueue(site.ContactEmail, subject, body)
}
