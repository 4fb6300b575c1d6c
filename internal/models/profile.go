package models

// Student is the student profile attached to a user.
type Student struct {
	ID                 string `db:"id" json:"id"`
	RegistrationNumber string `db:"registration_number" json:"registration_number"`
	UserID             string `db:"user_id" json:"user_id"`
}

// Teacher is the teacher profile attached to a user.
type Teacher struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
}

// TeacherOption is a combo-box row for assigning subjects to teachers.
type TeacherOption struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
}

// Profile is the resolved role of a user. Resolution order is admin grant
// first, then student, then teacher; the first match wins.
type Profile struct {
	Role      Role
	ProfileID string
}
