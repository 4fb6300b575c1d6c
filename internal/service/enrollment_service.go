package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/collegesync/collegesync-api/internal/models"
	"github.com/collegesync/collegesync-api/internal/repository"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
	"github.com/collegesync/collegesync-api/pkg/export"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, studentID, subjectID string) error
	ListSubjectsByStudent(ctx context.Context, studentID string) ([]models.EnrolledSubject, error)
	ListStudentsByTeacher(ctx context.Context, teacherID string) ([]models.EnrolledStudent, error)
}

type enrollmentStudentReader interface {
	FindStudentByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// EnrollRequest pairs a student with a subject.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// RosterExport is a rendered roster document.
type RosterExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// EnrollmentService manages subject enrollments and the role-specific
// listings built on them.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentReader
	subjects  enrollmentSubjectReader
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService creates a new enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentReader, subjects enrollmentSubjectReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		subjects:  subjects,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Enroll adds a student to a subject.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.students.FindStudentByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := s.repo.Create(ctx, &models.Enrollment{StudentID: req.StudentID, SubjectID: req.SubjectID}); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return appErrors.Clone(appErrors.ErrConflict, "student already enrolled in subject")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return nil
}

// Unenroll removes a student from a subject.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, subjectID string) error {
	if err := s.repo.Delete(ctx, studentID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
	}
	return nil
}

// MySubjects lists the subjects the viewing student is enrolled in.
func (s *EnrollmentService) MySubjects(ctx context.Context, viewer models.Viewer) ([]models.EnrolledSubject, error) {
	if viewer.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "restricted to students")
	}
	subjects, err := s.repo.ListSubjectsByStudent(ctx, viewer.ProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// MyStudents lists every student enrolled in the viewing teacher's
// subjects.
func (s *EnrollmentService) MyStudents(ctx context.Context, viewer models.Viewer) ([]models.EnrolledStudent, error) {
	if viewer.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "restricted to teachers")
	}
	students, err := s.repo.ListStudentsByTeacher(ctx, viewer.ProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// ExportRoster renders the viewing teacher's student roster as CSV or PDF.
func (s *EnrollmentService) ExportRoster(ctx context.Context, viewer models.Viewer, format string) (*RosterExport, error) {
	students, err := s.MyStudents(ctx, viewer)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Registration Number", "Subject"},
	}
	for _, st := range students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":             st.FullName,
			"Email":               st.Email,
			"Registration Number": st.RegistrationNumber,
			"Subject":             st.SubjectName,
		})
	}

	switch format {
	case "csv", "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &RosterExport{Content: content, ContentType: "text/csv", Filename: "students.csv"}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, "My Students")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &RosterExport{Content: content, ContentType: "application/pdf", Filename: "students.pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
