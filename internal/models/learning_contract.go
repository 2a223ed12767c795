package models

import "time"

// ContractStatus tracks the agency-facing learning contract workflow.
type ContractStatus string

const (
	ContractStatusPending   ContractStatus = "PENDING"
	ContractStatusSent      ContractStatus = "SENT"
	ContractStatusSubmitted ContractStatus = "SUBMITTED"
	ContractStatusApproved  ContractStatus = "APPROVED"
	ContractStatusRejected  ContractStatus = "REJECTED"
)

// LearningContract gates a new site behind agency-submitted program details.
// Token is the sole credential for the agency-side submission endpoint and is
// immutable once issued.
type LearningContract struct {
	ID             string         `db:"id" json:"id"`
	SiteID         string         `db:"site_id" json:"site_id"`
	Token          string         `db:"token" json:"-"`
	Status         ContractStatus `db:"status" json:"status"`
	RecipientName  string         `db:"recipient_name" json:"recipient_name"`
	RecipientEmail string         `db:"recipient_email" json:"recipient_email"`

	// Agency-provided fields, populated on submission.
	DirectorName          *string `db:"director_name" json:"director_name,omitempty"`
	AgencyAddress         *string `db:"agency_address" json:"agency_address,omitempty"`
	InstructorName        *string `db:"instructor_name" json:"instructor_name,omitempty"`
	InstructorCredentials *string `db:"instructor_credentials" json:"instructor_credentials,omitempty"`
	ProgramDescription    *string `db:"program_description" json:"program_description,omitempty"`

	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy  *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
