package models

import "time"

// StatusPending is the lifecycle stage every appointment starts in.
const StatusPending = "pending"

// AppointmentStatus is a row of the appointment_statuses lookup table.
type AppointmentStatus struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Appointment is a scheduled meeting on a subject. TeacherID is a snapshot
// of the subject's owner taken at creation time and is not re-derived when
// the subject is reassigned later. StudentID is nil exactly when a teacher
// created the appointment on behalf of no specific student.
type Appointment struct {
	ID          string    `db:"id" json:"id"`
	Description string    `db:"description" json:"description"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Notes       string    `db:"notes" json:"notes"`
	StatusID    string    `db:"status_id" json:"status_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	StudentID   *string   `db:"student_id" json:"student_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentDetail is the display projection joining subject, optional
// student, teacher and status names.
type AppointmentDetail struct {
	ID          string    `db:"id" json:"id"`
	Description string    `db:"description" json:"description"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Notes       string    `db:"notes" json:"notes"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	StudentName *string   `db:"student_name" json:"student_name,omitempty"`
	TeacherName string    `db:"teacher_name" json:"teacher_name"`
	Status      string    `db:"status" json:"status"`
	StudentID   *string   `db:"student_id" json:"student_id,omitempty"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
}

// CalendarRow is the raw per-role visibility query result the calendar
// resolver turns into entries. StudentID is populated for student and
// teacher queries, StudentName only for the admin query.
type CalendarRow struct {
	ID          string    `db:"id"`
	Description string    `db:"description"`
	ScheduledAt time.Time `db:"scheduled_at"`
	SubjectName string    `db:"subject_name"`
	StudentID   *string   `db:"student_id"`
	StudentName *string   `db:"student_name"`
}

// CalendarEntry is what the shared calendar renders for one appointment.
type CalendarEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	Color string `json:"color"`
}
