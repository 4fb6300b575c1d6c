package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/collegesync/collegesync-api/internal/models"
)

// UserRepository handles persistence for users, admin grants, profile
// resolution and refresh tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, full_name, email, birth_date, password_hash, created_at, updated_at"

// FindByEmail returns the user with the given email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListWithAdminFlag returns all users annotated with whether an admin grant
// row exists for them, ordered by name.
func (r *UserRepository) ListWithAdminFlag(ctx context.Context) ([]models.UserWithAdminFlag, error) {
	const query = `SELECT u.id, u.full_name, u.email,
		CASE WHEN a.id IS NOT NULL THEN TRUE ELSE FALSE END AS is_admin
		FROM users u
		LEFT JOIN admins a ON u.id = a.user_id
		ORDER BY u.full_name`
	var users []models.UserWithAdminFlag
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create persists a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, full_name, email, birth_date, password_hash, created_at, updated_at)
		VALUES (:id, :full_name, :email, :birth_date, :password_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return err
	}
	return nil
}

// CreateWithProfile inserts the user and its role profile in one
// transaction so a duplicate registration number cannot leave a profileless
// user behind. Only student and teacher profiles can be registered.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *models.User, role models.Role, registrationNumber string) (string, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertUser = `INSERT INTO users (id, full_name, email, birth_date, password_hash, created_at, updated_at)
		VALUES (:id, :full_name, :email, :birth_date, :password_hash, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertUser, user); err != nil {
		return "", err
	}

	profileID := uuid.NewString()
	switch role {
	case models.RoleStudent:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO students (id, registration_number, user_id) VALUES ($1, $2, $3)`,
			profileID, registrationNumber, user.ID); err != nil {
			return "", err
		}
	case models.RoleTeacher:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teachers (id, user_id) VALUES ($1, $2)`,
			profileID, user.ID); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported registration role %q", role)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit register: %w", err)
	}
	return profileID, nil
}

// Update modifies a user row.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET full_name = :full_name, email = :email, birth_date = :birth_date,
		password_hash = :password_hash, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return err
	}
	return nil
}

// ResolveProfile determines the role of a user: an admin grant takes
// precedence, then a student profile, then a teacher profile. Users with no
// profile at all resolve to sql.ErrNoRows.
func (r *UserRepository) ResolveProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var id string

	err := r.db.GetContext(ctx, &id, `SELECT id FROM admins WHERE user_id = $1`, userID)
	if err == nil {
		return &models.Profile{Role: models.RoleAdmin, ProfileID: id}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve admin grant: %w", err)
	}

	err = r.db.GetContext(ctx, &id, `SELECT id FROM students WHERE user_id = $1`, userID)
	if err == nil {
		return &models.Profile{Role: models.RoleStudent, ProfileID: id}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve student profile: %w", err)
	}

	err = r.db.GetContext(ctx, &id, `SELECT id FROM teachers WHERE user_id = $1`, userID)
	if err == nil {
		return &models.Profile{Role: models.RoleTeacher, ProfileID: id}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve teacher profile: %w", err)
	}

	return nil, sql.ErrNoRows
}

// PromoteAdmin inserts an admin grant for the user.
func (r *UserRepository) PromoteAdmin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO admins (id, user_id) VALUES ($1, $2)`, uuid.NewString(), userID)
	return err
}

// RevokeAdmin removes the admin grant for the user if one exists.
func (r *UserRepository) RevokeAdmin(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("revoke admin: %w", err)
	}
	return nil
}

// DeleteCascade removes a user and everything hanging off it inside a
// single transaction: appointments first, then enrollments, then owned
// subjects, then the role profiles and admin grant, then the user row.
// Any failure rolls the whole cascade back.
func (r *UserRepository) DeleteCascade(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		// student side: own appointments, then enrollments
		`DELETE FROM appointments WHERE student_id IN (SELECT id FROM students WHERE user_id = $1)`,
		`DELETE FROM student_subjects WHERE student_id IN (SELECT id FROM students WHERE user_id = $1)`,
		// teacher side: everything on owned subjects, then the subjects
		`DELETE FROM appointments WHERE subject_id IN (
			SELECT s.id FROM subjects s JOIN teachers t ON s.teacher_id = t.id WHERE t.user_id = $1)`,
		`DELETE FROM student_subjects WHERE subject_id IN (
			SELECT s.id FROM subjects s JOIN teachers t ON s.teacher_id = t.id WHERE t.user_id = $1)`,
		`DELETE FROM subjects WHERE teacher_id IN (SELECT id FROM teachers WHERE user_id = $1)`,
		// profiles, grants, sessions, the user itself
		`DELETE FROM students WHERE user_id = $1`,
		`DELETE FROM teachers WHERE user_id = $1`,
		`DELETE FROM admins WHERE user_id = $1`,
		`DELETE FROM refresh_tokens WHERE user_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
			return fmt.Errorf("cascade delete user: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade delete: %w", err)
	}
	return nil
}

// CreateRefreshToken stores a refresh token row.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, revoked, revoked_at, ip_address, user_agent, created_at)
		VALUES (:id, :user_id, :token, :expires_at, :revoked, :revoked_at, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns the refresh token row matching the opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, revoked, revoked_at, ip_address, user_agent, created_at
		FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		return nil, err
	}
	return &rt, nil
}

// RevokeRefreshToken marks one refresh token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes every live refresh token of a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit trail row. Failures are the caller's
// problem to downgrade; the repository just reports them.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
		VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
