package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collegesync/collegesync-api/internal/models"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
)

type mockUserRepo struct {
	listed   []models.UserWithAdminFlag
	stored   *models.User
	findErr  error
	createID string

	createErr  error
	updateErr  error
	promoteErr error
	revokeErr  error
	deleteErr  error

	promotedID string
	revokedID  string
	deletedID  string
	gotRegNum  string
}

func (m *mockUserRepo) ListWithAdminFlag(ctx context.Context) ([]models.UserWithAdminFlag, error) {
	return m.listed, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.stored, nil
}

func (m *mockUserRepo) CreateWithProfile(ctx context.Context, user *models.User, role models.Role, registrationNumber string) (string, error) {
	m.gotRegNum = registrationNumber
	if m.createErr != nil {
		return "", m.createErr
	}
	user.ID = "usr-new"
	return m.createID, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	return m.updateErr
}

func (m *mockUserRepo) PromoteAdmin(ctx context.Context, userID string) error {
	if m.promoteErr != nil {
		return m.promoteErr
	}
	m.promotedID = userID
	return nil
}

func (m *mockUserRepo) RevokeAdmin(ctx context.Context, userID string) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.revokedID = userID
	return nil
}

func (m *mockUserRepo) DeleteCascade(ctx context.Context, userID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = userID
	return nil
}

func newUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func TestUserListIncludesAdminFlag(t *testing.T) {
	repo := &mockUserRepo{listed: []models.UserWithAdminFlag{
		{ID: "usr-1", FullName: "Alice Johnson", Email: "alice@example.com", IsAdmin: true},
		{ID: "usr-2", FullName: "Bob Smith", Email: "bob@example.com"},
	}}
	svc := newUserService(repo)

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].IsAdmin)
	assert.False(t, users[1].IsAdmin)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{createErr: &pq.Error{Code: "23505", Constraint: "users_email_key"}}
	svc := newUserService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		FullName: "Alice Johnson",
		Email:    "alice@example.com",
		Password: "secret1",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, "email already registered", appErrors.FromError(err).Message)
}

func TestUserCreateStudentDefaultsRegistrationNumber(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newUserService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		FullName: "Alice Johnson",
		Email:    "alice@example.com",
		Password: "secret1",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(repo.gotRegNum, "TEMP"))
	assert.NotEqual(t, "TEMP", repo.gotRegNum)
}

func TestUserCreateTeacherLeavesRegistrationNumberBlank(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newUserService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		FullName: "Dr. Brown",
		Email:    "brown@example.com",
		Password: "secret1",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Empty(t, repo.gotRegNum)
}

func TestUserCreateRejectsAdminRole(t *testing.T) {
	svc := newUserService(&mockUserRepo{})

	_, err := svc.Create(context.Background(), CreateUserRequest{
		FullName: "Eve",
		Email:    "eve@example.com",
		Password: "secret1",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateRotatesPasswordWhenProvided(t *testing.T) {
	repo := &mockUserRepo{stored: &models.User{ID: "usr-1", Email: "alice@example.com", PasswordHash: "old-hash"}}
	svc := newUserService(repo)

	user, err := svc.Update(context.Background(), "usr-1", UpdateUserRequest{
		FullName: "Alice Johnson",
		Email:    "alice@example.com",
		Password: "newsecret",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "old-hash", user.PasswordHash)
}

func TestUserDeleteCascades(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "usr-1"))
	assert.Equal(t, "usr-1", repo.deletedID)
}

func TestUserDeleteUnknown(t *testing.T) {
	repo := &mockUserRepo{deleteErr: sql.ErrNoRows}
	svc := newUserService(repo)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPromoteAdminRejectsSelf(t *testing.T) {
	repo := &mockUserRepo{stored: &models.User{ID: "usr-1"}}
	svc := newUserService(repo)

	err := svc.PromoteAdmin(context.Background(), "usr-1", "usr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, repo.promotedID)
}

func TestPromoteAdminAlreadyAdmin(t *testing.T) {
	repo := &mockUserRepo{
		stored:     &models.User{ID: "usr-2"},
		promoteErr: &pq.Error{Code: "23505", Constraint: "admins_user_id_key"},
	}
	svc := newUserService(repo)

	err := svc.PromoteAdmin(context.Background(), "usr-1", "usr-2")
	require.Error(t, err)
	assert.Equal(t, "user is already an admin", appErrors.FromError(err).Message)
}

func TestPromoteAdminSuccess(t *testing.T) {
	repo := &mockUserRepo{stored: &models.User{ID: "usr-2"}}
	svc := newUserService(repo)

	require.NoError(t, svc.PromoteAdmin(context.Background(), "usr-1", "usr-2"))
	assert.Equal(t, "usr-2", repo.promotedID)
}

func TestRevokeAdminRejectsSelf(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newUserService(repo)

	err := svc.RevokeAdmin(context.Background(), "usr-1", "usr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.revokedID)
}

func TestRevokeAdminSuccess(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newUserService(repo)

	require.NoError(t, svc.RevokeAdmin(context.Background(), "usr-1", "usr-2"))
	assert.Equal(t, "usr-2", repo.revokedID)
}
