package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/collegesync/collegesync-api/internal/models"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns all subjects with their owning teacher's name, ordered by
// subject name.
func (r *SubjectRepository) List(ctx context.Context) ([]models.SubjectDetail, error) {
	const query = `SELECT s.id, s.name, s.teacher_id, u.full_name AS teacher_name
		FROM subjects s
		JOIN teachers t ON s.teacher_id = t.id
		JOIN users u ON t.user_id = u.id
		ORDER BY s.name`
	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListAll returns every subject, for combo boxes.
func (r *SubjectRepository) ListAll(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, teacher_id FROM subjects ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list all subjects: %w", err)
	}
	return subjects, nil
}

// ListByTeacher returns the subjects owned by one teacher.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error) {
	const query = `SELECT id, name, teacher_id FROM subjects WHERE teacher_id = $1 ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, teacher_id FROM subjects WHERE id = $1 LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindOwningTeacher returns the teacher_id of a subject.
func (r *SubjectRepository) FindOwningTeacher(ctx context.Context, subjectID string) (string, error) {
	const query = `SELECT teacher_id FROM subjects WHERE id = $1 LIMIT 1`
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, query, subjectID); err != nil {
		return "", err
	}
	return teacherID, nil
}

// Create persists a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	const query = `INSERT INTO subjects (id, name, teacher_id) VALUES (:id, :name, :teacher_id)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return err
	}
	return nil
}

// Update modifies a subject. Reassigning the owning teacher does not touch
// existing appointments; their teacher_id stays the creation-time snapshot.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	const query = `UPDATE subjects SET name = :name, teacher_id = :teacher_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return err
	}
	return nil
}

// Delete removes a subject record. Dependent enrollments or appointments
// surface as a foreign key violation.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return err
	}
	return nil
}

// CountDependents returns the number of enrollments and appointments still
// referencing the subject.
func (r *SubjectRepository) CountDependents(ctx context.Context, id string) (int, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM student_subjects WHERE subject_id = $1) +
		(SELECT COUNT(*) FROM appointments WHERE subject_id = $1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count subject dependents: %w", err)
	}
	return count, nil
}
