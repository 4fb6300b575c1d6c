package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/collegesync/collegesync-api/internal/models"
)

// ProfileRepository reads student and teacher profile rows.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new repository instance.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindStudentByID returns a student profile by its id.
func (r *ProfileRepository) FindStudentByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, registration_number, user_id FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindTeacherByID returns a teacher profile by its id.
func (r *ProfileRepository) FindTeacherByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, user_id FROM teachers WHERE id = $1 LIMIT 1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListTeacherOptions returns teachers with display names for the subject
// assignment combo, ordered by name.
func (r *ProfileRepository) ListTeacherOptions(ctx context.Context) ([]models.TeacherOption, error) {
	const query = `SELECT t.id, u.full_name
		FROM teachers t
		JOIN users u ON t.user_id = u.id
		ORDER BY u.full_name`
	var options []models.TeacherOption
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("list teacher options: %w", err)
	}
	return options, nil
}
