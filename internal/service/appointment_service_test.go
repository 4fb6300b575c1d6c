package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collegesync/collegesync-api/internal/models"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
)

type mockAppointmentRepo struct {
	status    *models.AppointmentStatus
	statusErr error

	stored    *models.Appointment
	detail    *models.AppointmentDetail
	findErr   error
	detailErr error
	createErr error
	updateErr error
	deleteErr error

	created   *models.Appointment
	updated   *models.Appointment
	deletedID string
}

func (m *mockAppointmentRepo) FindStatusByName(ctx context.Context, name string) (*models.AppointmentStatus, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

func (m *mockAppointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	appt.ID = "apt-new"
	m.created = appt
	return nil
}

func (m *mockAppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.stored, nil
}

func (m *mockAppointmentRepo) FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockAppointmentRepo) Update(ctx context.Context, appt *models.Appointment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = appt
	return nil
}

func (m *mockAppointmentRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	return nil
}

type mockSubjectReader struct {
	teacherID string
	err       error
}

func (m *mockSubjectReader) FindOwningTeacher(ctx context.Context, subjectID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.teacherID, nil
}

func pendingStatus() *models.AppointmentStatus {
	return &models.AppointmentStatus{ID: "st-pending", Name: models.StatusPending}
}

var when = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func TestAppointmentCreateAsStudent(t *testing.T) {
	repo := &mockAppointmentRepo{status: pendingStatus()}
	svc := NewAppointmentService(repo, &mockSubjectReader{teacherID: "tea-1"}, validator.New(), zap.NewNop())

	appt, err := svc.Create(context.Background(), models.Viewer{Role: models.RoleStudent, ProfileID: "stu-1"}, CreateAppointmentRequest{
		Description: "Thesis review",
		ScheduledAt: when,
		SubjectID:   "sub-1",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)

	assert.Equal(t, "tea-1", appt.TeacherID)
	require.NotNil(t, appt.StudentID)
	assert.Equal(t, "stu-1", *appt.StudentID)
	assert.Equal(t, "st-pending", appt.StatusID)
}

func TestAppointmentCreateAsTeacherHasNoStudent(t *testing.T) {
	repo := &mockAppointmentRepo{status: pendingStatus()}
	svc := NewAppointmentService(repo, &mockSubjectReader{teacherID: "tea-1"}, validator.New(), zap.NewNop())

	appt, err := svc.Create(context.Background(), models.Viewer{Role: models.RoleTeacher, ProfileID: "tea-1"}, CreateAppointmentRequest{
		Description: "Office hours",
		ScheduledAt: when,
		SubjectID:   "sub-1",
	})
	require.NoError(t, err)
	assert.Nil(t, appt.StudentID)
}

func TestAppointmentCreateUnknownSubject(t *testing.T) {
	repo := &mockAppointmentRepo{status: pendingStatus()}
	svc := NewAppointmentService(repo, &mockSubjectReader{err: sql.ErrNoRows}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.Viewer{Role: models.RoleStudent, ProfileID: "stu-1"}, CreateAppointmentRequest{
		Description: "Thesis review",
		ScheduledAt: when,
		SubjectID:   "missing",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestAppointmentCreateInvalidPayload(t *testing.T) {
	svc := NewAppointmentService(&mockAppointmentRepo{}, &mockSubjectReader{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.Viewer{Role: models.RoleStudent, ProfileID: "stu-1"}, CreateAppointmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppointmentDetailIncludesPermissions(t *testing.T) {
	repo := &mockAppointmentRepo{detail: &models.AppointmentDetail{
		ID:        "apt-1",
		StudentID: strPtr("stu-1"),
		TeacherID: "tea-1",
	}}
	svc := NewAppointmentService(repo, &mockSubjectReader{}, validator.New(), zap.NewNop())

	res, err := svc.Detail(context.Background(), models.Viewer{Role: models.RoleStudent, ProfileID: "stu-1"}, "apt-1")
	require.NoError(t, err)
	assert.True(t, res.Permissions.CanEdit)
	assert.True(t, res.Permissions.CanDelete)

	res, err = svc.Detail(context.Background(), models.Viewer{Role: models.RoleTeacher, ProfileID: "tea-1"}, "apt-1")
	require.NoError(t, err)
	assert.True(t, res.Permissions.CanEdit)
	assert.False(t, res.Permissions.CanDelete)
}

func TestAppointmentDetailDeniedForStranger(t *testing.T) {
	repo := &mockAppointmentRepo{detail: &models.AppointmentDetail{
		ID:        "apt-1",
		StudentID: strPtr("stu-1"),
		TeacherID: "tea-1",
	}}
	svc := NewAppointmentService(repo, &mockSubjectReader{}, validator.New(), zap.NewNop())

	_, err := svc.Detail(context.Background(), models.Viewer{Role: models.RoleStudent, ProfileID: "stu-2"}, "apt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAppointmentDetailNotFound(t *testing.T) {
	repo := &mockAppointmentRepo{detailErr: sql.ErrNoRows}
	svc := NewAppointmentService(repo, &mockSubjectReader{}, validator.New(), zap.NewNop())

	_, err := svc.Detail(context.Background(), models.Viewer{Role: models.RoleAdmin}, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAppointmentUpdateKeepsTeacherSnapshot(t *testing.T) {
	repo := &mockAppointmentRepo{stored: &models.Appointment{
		ID:        "apt-1",
		StudentID: strPtr("stu-1"),
		TeacherID: "tea-1",
		SubjectID: "sub-1",
	}}
	svc := NewAppointmentService(repo, &mockSubjectReader{teacherID: "tea-other"}, validator.New(), zap.NewNop())

	appt, err := svc.Update(context.Background(), models.Viewer{Role: models.RoleStudent, ProfileID: "stu-1"}, "apt-1", UpdateAppointmentRequest{
		Description: "Rescheduled review",
		ScheduledAt: when,
		SubjectID:   "sub-2",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.updated)

	// Subject moved, teacher snapshot stays.
	assert.Equal(t, "sub-2", appt.SubjectID)
	assert.Equal(t, "tea-1", appt.TeacherID)
}

func TestAppointmentUpdateDeniedForOtherTeacher(t *testing.T) {
	repo := &mockAppointmentRepo{stored: &models.Appointment{
		ID:        "apt-1",
		StudentID: strPtr("stu-1"),
		TeacherID: "tea-1",
	}}
	svc := NewAppointmentService(repo, &mockSubjectReader{}, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), models.Viewer{Role: models.RoleTeacher, ProfileID: "tea-2"}, "apt-1", UpdateAppointmentRequest{
		Description: "Hijack",
		ScheduledAt: when,
		SubjectID:   "sub-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestAppointmentDeleteByOwner(t *testing.T) {
	repo := &mockAppointmentRepo{stored: &models.Appointment{
		ID:        "apt-1",
		StudentID: strPtr("stu-1"),
		TeacherID: "tea-1",
	}}
	svc := NewAppointmentService(repo, &mockSubjectReader{}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), models.Viewer{Role: models.RoleStudent, ProfileID: "stu-1"}, "apt-1")
	require.NoError(t, err)
	assert.Equal(t, "apt-1", repo.deletedID)
}

func TestAppointmentDeleteDeniedForTeacher(t *testing.T) {
	repo := &mockAppointmentRepo{stored: &models.Appointment{
		ID:        "apt-1",
		StudentID: strPtr("stu-1"),
		TeacherID: "tea-1",
	}}
	svc := NewAppointmentService(repo, &mockSubjectReader{}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), models.Viewer{Role: models.RoleTeacher, ProfileID: "tea-1"}, "apt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deletedID)
}

func TestAppointmentDeleteVanishedRowIsNotFound(t *testing.T) {
	repo := &mockAppointmentRepo{
		stored:    &models.Appointment{ID: "apt-1", StudentID: strPtr("stu-1"), TeacherID: "tea-1"},
		deleteErr: sql.ErrNoRows,
	}
	svc := NewAppointmentService(repo, &mockSubjectReader{}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), models.Viewer{Role: models.RoleAdmin}, "apt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
