package models

import "time"

// Role identifies what kind of actor a viewer is. The set is closed:
// every viewer is exactly one of admin, student, or teacher.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Viewer is the authenticated actor a request acts as. ProfileID is the
// role-specific identifier (student id or teacher id), not the user id.
// Admins may carry an empty ProfileID; decisions for them must never
// dereference it.
type Viewer struct {
	Role      Role
	ProfileID string
}

// User represents an account stored in the users table. A user maps to at
// most one student or teacher profile, plus an optional admin grant.
type User struct {
	ID           string     `db:"id" json:"id"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserWithAdminFlag is the admin listing row: every user plus whether an
// admin grant row exists for them.
type UserWithAdminFlag struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	IsAdmin  bool   `db:"is_admin" json:"is_admin"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
