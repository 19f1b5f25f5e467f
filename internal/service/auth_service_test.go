package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type authRepoStub struct {
	user          *models.User
	refreshToken  *models.RefreshToken
	createdTokens []*models.RefreshToken
	revokedIDs    []string
	revokedUsers  []string
	lastLoginSet  bool
	passwordSet   string
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLoginSet = true
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.passwordSet = passwordHash
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revokedUsers = append(s.revokedUsers, userID)
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.createdTokens = append(s.createdTokens, token)
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if s.refreshToken == nil || s.refreshToken.Token != token {
		return nil, sql.ErrNoRows
	}
	return s.refreshToken, nil
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	s.revokedIDs = append(s.revokedIDs, id)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "institute-crm",
	}
}

func testAuthUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	branchID := "branch-1"
	return &models.User{
		ID:           "user-1",
		Email:        "caller@institute.test",
		PasswordHash: string(hash),
		FullName:     "Test Caller",
		Role:         models.RoleTelecaller,
		BranchID:     &branchID,
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &authRepoStub{user: testAuthUser(t, "secret123")}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "caller@institute.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleTelecaller, resp.User.Role)
	require.NotNil(t, resp.User.BranchID)
	assert.Equal(t, "branch-1", *resp.User.BranchID)
	assert.True(t, repo.lastLoginSet)
	require.Len(t, repo.createdTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTelecaller, claims.Role)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, "branch-1", *claims.BranchID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &authRepoStub{user: testAuthUser(t, "secret123")}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "caller@institute.test",
		Password: "wrong",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := testAuthUser(t, "secret123")
	user.Active = false
	repo := &authRepoStub{user: user}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "caller@institute.test",
		Password: "secret123",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	user := testAuthUser(t, "secret123")
	repo := &authRepoStub{
		user: user,
		refreshToken: &models.RefreshToken{
			ID:        "rt-1",
			UserID:    user.ID,
			Token:     "old-refresh",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-refresh"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "old-refresh", resp.RefreshToken)
	assert.Equal(t, []string{"rt-1"}, repo.revokedIDs)
	require.Len(t, repo.createdTokens, 1)
}

func TestAuthServiceRefreshRejectsExpiredToken(t *testing.T) {
	user := testAuthUser(t, "secret123")
	repo := &authRepoStub{
		user: user,
		refreshToken: &models.RefreshToken{
			ID:        "rt-1",
			UserID:    user.ID,
			Token:     "old-refresh",
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-refresh"})
	require.Error(t, err)
	assert.Empty(t, repo.createdTokens)
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	repo := &authRepoStub{user: testAuthUser(t, "secret123")}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordSet)
	assert.Equal(t, []string{"user-1"}, repo.revokedUsers)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&authRepoStub{}, nil, nil, testAuthConfig())
	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
