package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/collegesync/collegesync-api/internal/models"
)

// EnrollmentRepository handles the students_subjects join relation.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository instance.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create enrolls a student in a subject. A duplicate pair surfaces as a
// unique violation.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `INSERT INTO student_subjects (student_id, subject_id) VALUES (:student_id, :subject_id)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return err
	}
	return nil
}

// Delete removes an enrollment pair. Returns sql.ErrNoRows when the pair
// does not exist.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, subjectID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM student_subjects WHERE student_id = $1 AND subject_id = $2`, studentID, subjectID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSubjectsByStudent returns the subjects a student is enrolled in with
// the owning teacher's name.
func (r *EnrollmentRepository) ListSubjectsByStudent(ctx context.Context, studentID string) ([]models.EnrolledSubject, error) {
	const query = `SELECT s.name AS subject_name, u.full_name AS teacher_name
		FROM subjects s
		JOIN student_subjects ss ON s.id = ss.subject_id
		JOIN teachers t ON s.teacher_id = t.id
		JOIN users u ON t.user_id = u.id
		WHERE ss.student_id = $1
		ORDER BY s.name`
	var subjects []models.EnrolledSubject
	if err := r.db.SelectContext(ctx, &subjects, query, studentID); err != nil {
		return nil, fmt.Errorf("list student subjects: %w", err)
	}
	return subjects, nil
}

// ListStudentsByTeacher returns every student enrolled in any of the
// teacher's subjects, ordered by subject then student name.
func (r *EnrollmentRepository) ListStudentsByTeacher(ctx context.Context, teacherID string) ([]models.EnrolledStudent, error) {
	const query = `SELECT u.full_name, u.email, st.registration_number, s.name AS subject_name
		FROM subjects s
		JOIN student_subjects ss ON s.id = ss.subject_id
		JOIN students st ON ss.student_id = st.id
		JOIN users u ON st.user_id = u.id
		WHERE s.teacher_id = $1
		ORDER BY s.name, u.full_name`
	var students []models.EnrolledStudent
	if err := r.db.SelectContext(ctx, &students, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher students: %w", err)
	}
	return students, nil
}
