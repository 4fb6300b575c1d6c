package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/collegesync/collegesync-api/internal/models"
)

// AppointmentRepository handles persistence for appointments, their status
// lookup and the per-role calendar visibility queries.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new repository instance.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// FindStatusByName returns the status row with the given lifecycle name.
func (r *AppointmentRepository) FindStatusByName(ctx context.Context, name string) (*models.AppointmentStatus, error) {
	const query = `SELECT id, name FROM appointment_statuses WHERE name = $1 LIMIT 1`
	var status models.AppointmentStatus
	if err := r.db.GetContext(ctx, &status, query, name); err != nil {
		return nil, err
	}
	return &status, nil
}

// Create persists a new appointment and returns its assigned id.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	const query = `INSERT INTO appointments (id, description, scheduled_at, notes, status_id, subject_id, teacher_id, student_id, created_at, updated_at)
		VALUES (:id, :description, :scheduled_at, :notes, :status_id, :subject_id, :teacher_id, :student_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return err
	}
	return nil
}

// FindByID returns the raw appointment row.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	const query = `SELECT id, description, scheduled_at, notes, status_id, subject_id, teacher_id, student_id, created_at, updated_at
		FROM appointments WHERE id = $1 LIMIT 1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindDetailByID returns the display projection joining subject, optional
// student, teacher and status.
func (r *AppointmentRepository) FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error) {
	const query = `SELECT a.id, a.description, a.scheduled_at, a.notes,
		s.name AS subject_name, u.full_name AS student_name, tu.full_name AS teacher_name,
		ast.name AS status, a.student_id, a.teacher_id
		FROM appointments a
		JOIN subjects s ON a.subject_id = s.id
		LEFT JOIN students st ON a.student_id = st.id
		LEFT JOIN users u ON st.user_id = u.id
		JOIN teachers t ON a.teacher_id = t.id
		JOIN users tu ON t.user_id = tu.id
		JOIN appointment_statuses ast ON a.status_id = ast.id
		WHERE a.id = $1`
	var detail models.AppointmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update persists the editable fields. Ownership columns and the teacher
// snapshot are deliberately left untouched.
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET description = :description, scheduled_at = :scheduled_at,
		subject_id = :subject_id, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return err
	}
	return nil
}

// Delete removes an appointment. Returns sql.ErrNoRows when the id no
// longer resolves, so a second delete reports not found instead of
// succeeding silently.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForStudent returns the appointments visible to a student: those on
// subjects they are enrolled in plus those they personally own. DISTINCT
// collapses the row that matches both conditions so an appointment never
// appears twice.
func (r *AppointmentRepository) ListForStudent(ctx context.Context, studentID string) ([]models.CalendarRow, error) {
	const query = `SELECT DISTINCT a.id, a.description, a.scheduled_at, s.name AS subject_name, a.student_id
		FROM appointments a
		JOIN subjects s ON a.subject_id = s.id
		LEFT JOIN student_subjects ss ON s.id = ss.subject_id
		WHERE ss.student_id = $1 OR a.student_id = $1`
	var rows []models.CalendarRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student appointments: %w", err)
	}
	return rows, nil
}

// ListForTeacher returns every appointment on the teacher's own subjects.
func (r *AppointmentRepository) ListForTeacher(ctx context.Context, teacherID string) ([]models.CalendarRow, error) {
	const query = `SELECT a.id, a.description, a.scheduled_at, s.name AS subject_name, a.student_id
		FROM appointments a
		JOIN subjects s ON a.subject_id = s.id
		WHERE s.teacher_id = $1`
	var rows []models.CalendarRow
	if err := r.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher appointments: %w", err)
	}
	return rows, nil
}

// ListForAdmin returns every appointment system-wide with the owning
// student's display name when one exists.
func (r *AppointmentRepository) ListForAdmin(ctx context.Context) ([]models.CalendarRow, error) {
	const query = `SELECT a.id, a.description, a.scheduled_at, s.name AS subject_name, u.full_name AS student_name
		FROM appointments a
		JOIN subjects s ON a.subject_id = s.id
		LEFT JOIN students st ON a.student_id = st.id
		LEFT JOIN users u ON st.user_id = u.id`
	var rows []models.CalendarRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all appointments: %w", err)
	}
	return rows, nil
}
