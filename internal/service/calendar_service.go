package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/collegesync/collegesync-api/internal/models"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
)

// Display colors for calendar entries. Admin entries use the alert color
// regardless of ownership; classmates' entries are muted.
const (
	colorAdmin     = "#dc3545"
	colorStudent   = "#0d6efd"
	colorTeacher   = "#198754"
	colorClassmate = "#6c757d"
)

const calendarTimeLayout = "2006-01-02 15:04:05"

type calendarAppointmentRepository interface {
	ListForStudent(ctx context.Context, studentID string) ([]models.CalendarRow, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]models.CalendarRow, error)
	ListForAdmin(ctx context.Context) ([]models.CalendarRow, error)
}

// CalendarService resolves which appointments a viewer sees on the shared
// calendar and how each entry is labeled and colored. Nothing is cached:
// every call re-reads committed state.
type CalendarService struct {
	repo    calendarAppointmentRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(repo calendarAppointmentRepository, metrics *MetricsService, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, metrics: metrics, logger: logger}
}

// ListForViewer returns the calendar entries visible to the viewer.
//
// Admins see everything with an "[Admin]" prefix. Students see appointments
// on subjects they are enrolled in plus their own; a classmate's entry hides
// the description and shows only "(Classmate) <subject>". Teachers see every
// appointment on their own subjects with full titles.
func (s *CalendarService) ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.CalendarEntry, error) {
	switch viewer.Role {
	case models.RoleAdmin:
		start := time.Now()
		rows, err := s.repo.ListForAdmin(ctx)
		s.metrics.ObserveDBQuery("calendar_admin", time.Since(start))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
		}
		entries := make([]models.CalendarEntry, 0, len(rows))
		for _, row := range rows {
			studentName := ""
			if row.StudentName != nil {
				studentName = *row.StudentName
			}
			entries = append(entries, models.CalendarEntry{
				ID:    row.ID,
				Title: fmt.Sprintf("[Admin] %s - %s", row.SubjectName, studentName),
				Start: row.ScheduledAt.Format(calendarTimeLayout),
				Color: colorAdmin,
			})
		}
		return entries, nil

	case models.RoleStudent:
		start := time.Now()
		rows, err := s.repo.ListForStudent(ctx, viewer.ProfileID)
		s.metrics.ObserveDBQuery("calendar_student", time.Since(start))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
		}
		entries := make([]models.CalendarEntry, 0, len(rows))
		seen := make(map[string]struct{}, len(rows))
		for _, row := range rows {
			// The union query already de-duplicates; the guard keeps the
			// invariant even if the query shape changes.
			if _, dup := seen[row.ID]; dup {
				continue
			}
			seen[row.ID] = struct{}{}

			own := row.StudentID != nil && viewer.ProfileID != "" && *row.StudentID == viewer.ProfileID
			entry := models.CalendarEntry{
				ID:    row.ID,
				Start: row.ScheduledAt.Format(calendarTimeLayout),
			}
			if own {
				entry.Title = fmt.Sprintf("%s - %s", row.SubjectName, row.Description)
				entry.Color = colorStudent
			} else {
				// Classmate's appointment on a shared subject: the
				// description stays private.
				entry.Title = fmt.Sprintf("(Classmate) %s", row.SubjectName)
				entry.Color = colorClassmate
			}
			entries = append(entries, entry)
		}
		return entries, nil

	case models.RoleTeacher:
		start := time.Now()
		rows, err := s.repo.ListForTeacher(ctx, viewer.ProfileID)
		s.metrics.ObserveDBQuery("calendar_teacher", time.Since(start))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
		}
		entries := make([]models.CalendarEntry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, models.CalendarEntry{
				ID:    row.ID,
				Title: fmt.Sprintf("%s - %s", row.SubjectName, row.Description),
				Start: row.ScheduledAt.Format(calendarTimeLayout),
				Color: colorTeacher,
			})
		}
		return entries, nil

	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown viewer role")
	}
}
