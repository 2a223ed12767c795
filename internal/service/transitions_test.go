package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldtrack/practicum-api/internal/models"
)

func TestNextPlacementStatus(t *testing.T) {
	cases := []struct {
		current models.PlacementStatus
		action  PlacementAction
		want    models.PlacementStatus
		ok      bool
	}{
		{models.PlacementStatusPending, PlacementActionApprove, models.PlacementStatusApprovedChecklist, true},
		{models.PlacementStatusPending, PlacementActionReject, models.PlacementStatusRejected, true},
		{models.PlacementStatusPending, PlacementActionActivate, "", false},
		{models.PlacementStatusApprovedChecklist, PlacementActionActivate, models.PlacementStatusActive, true},
		{models.PlacementStatusApprovedChecklist, PlacementActionApprove, "", false},
		{models.PlacementStatusActive, PlacementActionArchive, models.PlacementStatusArchived, true},
		{models.PlacementStatusActive, PlacementActionReject, "", false},
		{models.PlacementStatusRejected, PlacementActionApprove, "", false},
		{models.PlacementStatusArchived, PlacementActionArchive, "", false},
	}
	for _, tc := range cases {
		next, ok := NextPlacementStatus(tc.current, tc.action)
		assert.Equal(t, tc.ok, ok, "%s + %s", tc.current, tc.action)
		if tc.ok {
			assert.Equal(t, tc.want, next)
		}
	}
}

func TestNextTimesheetStatus(t *testing.T) {
	cases := []struct {
		current models.TimesheetStatus
		action  TimesheetAction
		want    models.TimesheetStatus
		ok      bool
	}{
		{models.TimesheetStatusDraft, TimesheetActionSubmit, models.TimesheetStatusPendingSupervisor, true},
		{models.TimesheetStatusDraft, TimesheetActionFacultyApprove, "", false},
		{models.TimesheetStatusPendingSupervisor, TimesheetActionSupervisorApprove, models.TimesheetStatusPendingFaculty, true},
		{models.TimesheetStatusPendingSupervisor, TimesheetActionSupervisorReject, models.TimesheetStatusRejected, true},
		{models.TimesheetStatusPendingSupervisor, TimesheetActionFacultyApprove, "", false},
		{models.TimesheetStatusPendingFaculty, TimesheetActionFacultyApprove, models.TimesheetStatusApproved, true},
		{models.TimesheetStatusPendingFaculty, TimesheetActionSupervisorApprove, "", false},
		{models.TimesheetStatusRejected, TimesheetActionEdit, models.TimesheetStatusDraft, true},
		{models.TimesheetStatusApproved, TimesheetActionEdit, "", false},
		{models.TimesheetStatusApproved, TimesheetActionFacultyReject, "", false},
	}
	for _, tc := range cases {
		next, ok := NextTimesheetStatus(tc.current, tc.action)
		assert.Equal(t, tc.ok, ok, "%s + %s", tc.current, tc.action)
		if tc.ok {
			assert.Equal(t, tc.want, next)
		}
	}
}
