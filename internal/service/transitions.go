package service

import "github.com/fieldtrack/practicum-api/internal/models"

// PlacementAction enumerates the operations that may move a placement
// between lifecycle states.
type PlacementAction string

const (
	PlacementActionApprove  PlacementAction = "APPROVE"
	PlacementActionReject   PlacementAction = "REJECT"
	PlacementActionActivate PlacementAction = "ACTIVATE"
	PlacementActionArchive  PlacementAction = "ARCHIVE"
)

// placementTransitions is the closed transition table for placements. Any
// (state, action) pair absent from the table is rejected outright; guards on
// the surviving pairs are enforced by PlacementService before the
// compare-and-swap write.
var placementTransitions = map[models.PlacementStatus]map[PlacementAction]models.PlacementStatus{
	models.PlacementStatusPending: {
		PlacementActionApprove: models.PlacementStatusApprovedChecklist,
		PlacementActionReject:  models.PlacementStatusRejected,
	},
	models.PlacementStatusApprovedChecklist: {
		PlacementActionActivate: models.PlacementStatusActive,
	},
	models.PlacementStatusActive: {
		PlacementActionArchive: models.PlacementStatusArchived,
	},
}

// NextPlacementStatus resolves the target state for an action, reporting
// whether the transition exists at all.
func NextPlacementStatus(current models.PlacementStatus, action PlacementAction) (models.PlacementStatus, bool) {
	actions, ok := placementTransitions[current]
	if !ok {
		return "", false
	}
	next, ok := actions[action]
	return next, ok
}

// TimesheetAction enumerates the operations on a timesheet entry.
type TimesheetAction string

const (
	TimesheetActionSubmit            TimesheetAction = "SUBMIT"
	TimesheetActionSupervisorApprove TimesheetAction = "SUPERVISOR_APPROVE"
	TimesheetActionSupervisorReject  TimesheetAction = "SUPERVISOR_REJECT"
	TimesheetActionFacultyApprove    TimesheetAction = "FACULTY_APPROVE"
	TimesheetActionFacultyReject     TimesheetAction = "FACULTY_REJECT"
	TimesheetActionEdit              TimesheetAction = "EDIT"
)

// timesheetTransitions is the closed transition table for timesheet entries.
// Submission routes straight to PENDING_SUPERVISOR: SUBMITTED is the logical
// midpoint of the week-submit batch and is never observable at rest.
var timesheetTransitions = map[models.TimesheetStatus]map[TimesheetAction]models.TimesheetStatus{
	models.TimesheetStatusDraft: {
		TimesheetActionSubmit: models.TimesheetStatusPendingSupervisor,
		TimesheetActionEdit:   models.TimesheetStatusDraft,
	},
	models.TimesheetStatusPendingSupervisor: {
		TimesheetActionSupervisorApprove: models.TimesheetStatusPendingFaculty,
		TimesheetActionSupervisorReject:  models.TimesheetStatusRejected,
	},
	models.TimesheetStatusPendingFaculty: {
		TimesheetActionFacultyApprove: models.TimesheetStatusApproved,
		TimesheetActionFacultyReject:  models.TimesheetStatusRejected,
	},
	models.TimesheetStatusRejected: {
		// Editing a rejected entry re-drafts it so the next week submission
		// picks it up again.
		TimesheetActionEdit: models.TimesheetStatusDraft,
	},
}

// NextTimesheetStatus resolves the target state for an action, reporting
// whether the transition exists at all.
func NextTimesheetStatus(current models.TimesheetStatus, action TimesheetAction) (models.TimesheetStatus, bool) {
	actions, ok := timesheetTransitions[current]
	if !ok {
		return "", false
	}
	next, ok := actions[action]
	return next, ok
}

// PendingTimesheetStatuses are the states counted as in-flight hours by the
// aggregator.
var PendingTimesheetStatuses = []models.TimesheetStatus{
	models.TimesheetStatusSubmitted,
	models.TimesheetStatusPendingSupervisor,
	models.TimesheetStatusPendingFaculty,
}
