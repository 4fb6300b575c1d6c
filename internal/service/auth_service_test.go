package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/collegesync/collegesync-api/internal/models"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail    *models.User
	findByEmailErr error
	userByID       *models.User
	findByIDErr    error

	profile    *models.Profile
	profileErr error

	createProfileID  string
	createWithErr    error
	createdUser      *models.User
	createdRole      models.Role
	createdRegNumber string

	updateErr error

	refreshTokens map[string]*models.RefreshToken
	auditLogs     []*models.AuditLog
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) ResolveProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

func (m *mockAuthRepo) CreateWithProfile(ctx context.Context, user *models.User, role models.Role, registrationNumber string) (string, error) {
	if m.createWithErr != nil {
		return "", m.createWithErr
	}
	user.ID = "usr-new"
	m.createdUser = user
	m.createdRole = role
	m.createdRegNumber = registrationNumber
	return m.createProfileID, nil
}

func (m *mockAuthRepo) Update(ctx context.Context, user *models.User) error {
	return m.updateErr
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, validator.New(), zap.NewNop(), AuthTokenConfig{
		Secret:             "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "collegesync-api",
	})
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthRegisterStudent(t *testing.T) {
	repo := &mockAuthRepo{createProfileID: "stu-1"}
	svc := newAuthService(repo)

	info, err := svc.Register(context.Background(), RegisterRequest{
		FullName:           "Alice Johnson",
		Email:              "Alice@Example.com",
		Password:           "secret1",
		Role:               models.RoleStudent,
		RegistrationNumber: "2024001",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.Equal(t, "stu-1", info.ProfileID)
	assert.Equal(t, "2024001", repo.createdRegNumber)
}

func TestAuthRegisterStudentGetsTemporaryRegistrationNumber(t *testing.T) {
	repo := &mockAuthRepo{createProfileID: "stu-1"}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FullName: "Alice Johnson",
		Email:    "alice@example.com",
		Password: "secret1",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.True(t, len(repo.createdRegNumber) > 4)
	assert.Equal(t, "TEMP", repo.createdRegNumber[:4])
}

func TestAuthRegisterRejectsAdminRole(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		FullName: "Eve",
		Email:    "eve@example.com",
		Password: "secret1",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	repo := &mockAuthRepo{createWithErr: &pq.Error{Code: "23505", Constraint: "users_email_key"}}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FullName: "Alice Johnson",
		Email:    "alice@example.com",
		Password: "secret1",
		Role:     models.RoleTeacher,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "email already registered", appErr.Message)
}

func TestAuthRegisterDuplicateRegistrationNumber(t *testing.T) {
	repo := &mockAuthRepo{createWithErr: &pq.Error{Code: "23505", Constraint: "students_registration_number_key"}}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FullName:           "Alice Johnson",
		Email:              "alice@example.com",
		Password:           "secret1",
		Role:               models.RoleStudent,
		RegistrationNumber: "2024001",
	})
	require.Error(t, err)
	assert.Equal(t, "registration number already registered", appErrors.FromError(err).Message)
}

func TestAuthLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{
		userByEmail: &models.User{ID: "usr-1", Email: "alice@example.com", FullName: "Alice Johnson", PasswordHash: hashOf(t, "secret1")},
		profile:     &models.Profile{Role: models.RoleStudent, ProfileID: "stu-1"},
	}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.Equal(t, "stu-1", res.User.ProfileID)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "stu-1", claims.ProfileID)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{
		userByEmail: &models.User{ID: "usr-1", Email: "alice@example.com", PasswordHash: hashOf(t, "secret1")},
		profile:     &models.Profile{Role: models.RoleStudent, ProfileID: "stu-1"},
	}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	repo := &mockAuthRepo{findByEmailErr: sql.ErrNoRows}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginWithoutProfile(t *testing.T) {
	repo := &mockAuthRepo{
		userByEmail: &models.User{ID: "usr-1", Email: "alice@example.com", PasswordHash: hashOf(t, "secret1")},
		profileErr:  sql.ErrNoRows,
	}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := &mockAuthRepo{
		userByID: &models.User{ID: "usr-1", Email: "alice@example.com"},
		profile:  &models.Profile{Role: models.RoleTeacher, ProfileID: "tea-1"},
		refreshTokens: map[string]*models.RefreshToken{
			"old-token": {ID: "rt-1", UserID: "usr-1", Token: "old-token", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := newAuthService(repo)

	res, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
	assert.Contains(t, repo.refreshTokens, res.RefreshToken)
}

func TestAuthRefreshExpiredToken(t *testing.T) {
	repo := &mockAuthRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"stale": {ID: "rt-1", UserID: "usr-1", Token: "stale", ExpiresAt: time.Now().Add(-time.Minute)},
		},
	}
	svc := newAuthService(repo)

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutIsIdempotent(t *testing.T) {
	repo := &mockAuthRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"live": {ID: "rt-1", UserID: "usr-1", Token: "live", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := newAuthService(repo)

	require.NoError(t, svc.Logout(context.Background(), "live"))
	assert.True(t, repo.refreshTokens["live"].Revoked)

	require.NoError(t, svc.Logout(context.Background(), "never-issued"))
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthUpdateProfileKeepsPasswordWhenBlank(t *testing.T) {
	original := hashOf(t, "secret1")
	repo := &mockAuthRepo{userByID: &models.User{ID: "usr-1", Email: "alice@example.com", PasswordHash: original}}
	svc := newAuthService(repo)

	user, err := svc.UpdateProfile(context.Background(), "usr-1", UpdateProfileRequest{
		FullName: "Alice J.",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, original, user.PasswordHash)
	assert.Equal(t, "Alice J.", user.FullName)
}
