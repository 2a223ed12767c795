package dto

// ProgramDashboardResponse captures the aggregated program dashboard payload.
type ProgramDashboardResponse struct {
	Placements PlacementDashboardSection `json:"placements"`
	Timesheets TimesheetDashboardSection `json:"timesheets"`
	Sites      SiteDashboardSection      `json:"sites"`
}

// PlacementDashboardSection counts placements per lifecycle stage.
type PlacementDashboardSection struct {
	Pending          int `json:"pending"`
	PendingChecklist int `json:"pendingChecklist"`
	Active           int `json:"active"`
	Archived         int `json:"archived"`
}

// TimesheetDashboardSection summarises the approval backlog.
type TimesheetDashboardSection struct {
	AwaitingSupervisor int     `json:"awaitingSupervisor"`
	AwaitingFaculty    int     `json:"awaitingFaculty"`
	ApprovedHours      float64 `json:"approvedHours"`
}

// SiteDashboardSection summarises site onboarding state.
type SiteDashboardSection struct {
	Active            int `json:"active"`
	AwaitingContract  int `json:"awaitingContract"`
	ContractsToReview int `json:"contractsToReview"`
}

// StudentProgressItem is one row in the faculty progress overview.
type StudentProgressItem struct {
	PlacementID   string  `json:"placementId"`
	StudentID     string  `json:"studentId"`
	SiteID        string  `json:"siteId"`
	Status        string  `json:"status"`
	RequiredHours float64 `json:"requiredHours"`
	ApprovedHours float64 `json:"approvedHours"`
	PendingHours  float64 `json:"pendingHours"`
}
