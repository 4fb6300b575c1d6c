package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/collegesync/collegesync-api/internal/models"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
)

type appointmentRepository interface {
	FindStatusByName(ctx context.Context, name string) (*models.AppointmentStatus, error)
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error)
	Update(ctx context.Context, appt *models.Appointment) error
	Delete(ctx context.Context, id string) error
}

type appointmentSubjectReader interface {
	FindOwningTeacher(ctx context.Context, subjectID string) (string, error)
}

// CreateAppointmentRequest captures fields for booking an appointment.
type CreateAppointmentRequest struct {
	Description string    `json:"description" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	SubjectID   string    `json:"subject_id" validate:"required"`
	Notes       string    `json:"notes"`
}

// UpdateAppointmentRequest captures the editable fields. Ownership is never
// taken from the payload; it always comes from the stored record.
type UpdateAppointmentRequest struct {
	Description string    `json:"description" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	SubjectID   string    `json:"subject_id" validate:"required"`
	Notes       string    `json:"notes"`
}

// AppointmentDetailResponse pairs the display projection with the viewer's
// decision set.
type AppointmentDetailResponse struct {
	*models.AppointmentDetail
	Permissions AppointmentPermissions `json:"permissions"`
}

// AppointmentService owns the appointment lifecycle: create, detail,
// update, delete. Every mutating call consults AppointmentAccess against
// the current stored record.
type AppointmentService struct {
	repo      appointmentRepository
	subjects  appointmentSubjectReader
	access    AppointmentAccess
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAppointmentService creates a new appointment service.
func NewAppointmentService(repo appointmentRepository, subjects appointmentSubjectReader, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// Create books a new appointment for the viewer. The responsible teacher is
// derived from the subject's owner at creation time and stored as a
// snapshot. The student reference is set only when a student creates the
// appointment; teacher- and admin-created appointments carry no student.
func (s *AppointmentService) Create(ctx context.Context, viewer models.Viewer, req CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	teacherID, err := s.subjects.FindOwningTeacher(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject teacher")
	}

	status, err := s.repo.FindStatusByName(ctx, models.StatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve initial status")
	}

	var studentID *string
	if viewer.Role == models.RoleStudent && viewer.ProfileID != "" {
		id := viewer.ProfileID
		studentID = &id
	}

	appt := &models.Appointment{
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
		StatusID:    status.ID,
		SubjectID:   req.SubjectID,
		TeacherID:   teacherID,
		StudentID:   studentID,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	s.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID),
		zap.String("subject_id", appt.SubjectID),
		zap.String("viewer_role", string(viewer.Role)),
	)
	return appt, nil
}

// Detail returns the display projection together with the viewer's
// permissions. Viewers the gate rejects get a denial, not the record.
func (s *AppointmentService) Detail(ctx context.Context, viewer models.Viewer, id string) (*AppointmentDetailResponse, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	ownership := AppointmentOwnership{StudentID: detail.StudentID, TeacherID: detail.TeacherID}
	perms := s.access.Permissions(viewer, ownership)
	if !perms.CanView {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you may not view this appointment")
	}

	return &AppointmentDetailResponse{AppointmentDetail: detail, Permissions: perms}, nil
}

// Update edits an appointment. The gate is checked against the CURRENT
// record's ownership, then description, schedule, subject and notes are
// persisted. The teacher snapshot is not re-derived when the subject
// changes.
func (s *AppointmentService) Update(ctx context.Context, viewer models.Viewer, id string, req UpdateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	if !s.access.CanEdit(viewer, AppointmentOwnership{StudentID: appt.StudentID, TeacherID: appt.TeacherID}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you may not edit this appointment")
	}

	appt.Description = req.Description
	appt.ScheduledAt = req.ScheduledAt
	appt.SubjectID = req.SubjectID
	appt.Notes = req.Notes

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}
	return appt, nil
}

// Delete removes an appointment after the gate's stricter delete check.
// Deleting an id that no longer resolves reports not found.
func (s *AppointmentService) Delete(ctx context.Context, viewer models.Viewer, id string) error {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	if !s.access.CanDelete(viewer, AppointmentOwnership{StudentID: appt.StudentID, TeacherID: appt.TeacherID}) {
		return appErrors.Clone(appErrors.ErrForbidden, "you may not delete this appointment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	return nil
}
