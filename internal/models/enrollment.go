package models

// Enrollment is a (student, subject) pair from the students_subjects join
// table. The pair is the identity; there is no surrogate key.
type Enrollment struct {
	StudentID string `db:"student_id" json:"student_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}

// EnrolledSubject is a row of a student's "my subjects" listing.
type EnrolledSubject struct {
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// EnrolledStudent is a row of a teacher's "my students" roster.
type EnrolledStudent struct {
	FullName           string `db:"full_name" json:"full_name"`
	Email              string `db:"email" json:"email"`
	RegistrationNumber string `db:"registration_number" json:"registration_number"`
	SubjectName        string `db:"subject_name" json:"subject_name"`
}
