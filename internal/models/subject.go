package models

// Subject is an academic subject owned by exactly one teacher.
type Subject struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
}

// SubjectDetail is a subject with its owning teacher's display name.
type SubjectDetail struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
