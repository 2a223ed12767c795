package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
	"github.com/fieldtrack/practicum-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries a rendered hours log ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type exportEntryStore interface {
	List(ctx context.Context, filter models.TimesheetFilter) ([]models.TimesheetEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders a placement's hours log for audit and accreditation
// paperwork. Exports are generated synchronously; the datasets are small
// (one row per logged day).
type ExportService struct {
	placements timesheetPlacementStore
	entries    exportEntryStore
	hours      hoursProvider
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

func NewExportService(
	placements timesheetPlacementStore,
	entries exportEntryStore,
	hours hoursProvider,
	csv csvRenderer,
	pdf pdfRenderer,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		placements: placements,
		entries:    entries,
		hours:      hours,
		csv:        csv,
		pdf:        pdf,
		logger:     logger,
	}
}

// HoursLog renders the full entry history for a placement.
func (s *ExportService) HoursLog(ctx context.Context, placementID string, format ExportFormat, actor *models.JWTClaims) (*ExportResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	placement, err := s.placements.GetByID(ctx, placementID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "placement not found")
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		if placement.FacultyID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "placement is assigned to another faculty member")
		}
	case models.RoleStudent:
		if placement.StudentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "placement belongs to another student")
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	entries, err := s.entries.List(ctx, models.TimesheetFilter{PlacementID: placementID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timesheet entries")
	}
	summary, err := s.hours.ComputeSummary(ctx, placementID)
	if err != nil {
		return nil, err
	}

	dataset := buildHoursDataset(entries, summary)
	title := fmt.Sprintf("Hours Log %s", placementID)

	var payload []byte
	var contentType, ext string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType, ext = "text/csv", "csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType, ext = "application/pdf", "pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("hours-log-%s-%s.%s", placementID, time.Now().UTC().Format("20060102"), ext)
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func buildHoursDataset(entries []models.TimesheetEntry, summary *models.HoursSummary) export.Dataset {
	headers := []string{"Date", "Hours", "Category", "Notes", "Status", "Rejection Reason"}
	rows := make([]map[string]string, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		reason := ""
		if e.RejectionReason != nil {
			reason = *e.RejectionReason
		}
		rows = append(rows, map[string]string{
			"Date":             e.EntryDate.Format("2006-01-02"),
			"Hours":            strconv.FormatFloat(e.Hours, 'f', 1, 64),
			"Category":         string(e.Category),
			"Notes":            e.Notes,
			"Status":           string(e.Status),
			"Rejection Reason": reason,
		})
	}
	totals := map[string]string{
		"Date": "TOTAL",
		"Hours": strings.Join([]string{
			"approved " + strconv.FormatFloat(summary.Approved, 'f', 1, 64),
			"pending " + strconv.FormatFloat(summary.Pending, 'f', 1, 64),
			"remaining " + strconv.FormatFloat(summary.Remaining, 'f', 1, 64),
		}, " / "),
	}
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Totals:  totals,
		// Notes gets the slack; the date and hours columns stay narrow.
		Widths: []float64{3, 4, 3, 6, 3, 4},
	}
}
