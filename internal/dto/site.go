package dto

// CreateSiteRequest registers a new prospective agency site. New sites start
// inactive until their learning contract clears review.
type CreateSiteRequest struct {
	Name             string `json:"name" validate:"required"`
	Address          string `json:"address"`
	City             string `json:"city"`
	State            string `json:"state"`
	ContactName      string `json:"contact_name" validate:"required"`
	ContactEmail     string `json:"contact_email" validate:"required,email"`
	ContactPhone     string `json:"contact_phone"`
	RequiresContract bool   `json:"requires_contract"`
}

// SendContractRequest issues a learning contract to an agency recipient.
type SendContractRequest struct {
	RecipientName  string `json:"recipient_name" validate:"required"`
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
}

// SubmitContractRequest is the agency-side submission, authenticated solely
// by the capability token in the URL.
type SubmitContractRequest struct {
	DirectorName          string `json:"director_name" validate:"required"`
	AgencyAddress         string `json:"agency_address" validate:"required"`
	InstructorName        string `json:"instructor_name" validate:"required"`
	InstructorCredentials string `json:"instructor_credentials" validate:"required"`
	ProgramDescription    string `json:"program_description" validate:"required"`
}

// ReviewContractRequest carries the faculty verdict on a submitted contract.
type ReviewContractRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}
