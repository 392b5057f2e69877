package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b3nzuk3/gameCity-sub001/internal/auth"
	"github.com/b3nzuk3/gameCity-sub001/internal/config"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/repositories"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

func init() {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 15
	config.AppConfig = cfg
}

type fakeTokenRepo struct {
	tokens map[string]*models.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (f *fakeTokenRepo) Create(token *models.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeTokenRepo) FindByToken(token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, repositories.ErrRefreshTokenNotFound
	}
	return t, nil
}

func (f *fakeTokenRepo) Delete(token string) error {
	if _, ok := f.tokens[token]; !ok {
		return repositories.ErrRefreshTokenNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeTokenRepo) DeleteExpired() (int64, error) { return 0, nil }

func newAuthFixture() (AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	return NewAuthService(users, tokens), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()

	reg, err := svc.Register(RegisterInput{
		Name:     "Brian",
		Email:    "Brian@Example.com",
		Password: "longenough",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)
	assert.Equal(t, "brian@example.com", reg.User.Email)

	claims, err := auth.ParseToken(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "customer", claims.Role)

	// Login is case-insensitive on email.
	login, err := svc.Login(LoginInput{Email: "BRIAN@example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(RegisterInput{Name: "B", Email: "b@example.com", Password: "short"})
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(RegisterInput{Name: "Brian", Email: "b@example.com", Password: "longenough"})
	require.NoError(t, err)

	_, err = svc.Login(LoginInput{Email: "b@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(LoginInput{Email: "nobody@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newAuthFixture()

	reg, err := svc.Register(RegisterInput{Name: "Brian", Email: "b@example.com", Password: "longenough"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(RefreshInput{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, refreshed.RefreshToken)

	// The consumed token is dead.
	_, err = svc.Refresh(RefreshInput{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestLogout(t *testing.T) {
	svc, _ := newAuthFixture()

	reg, err := svc.Register(RegisterInput{Name: "Brian", Email: "b@example.com", Password: "longenough"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(reg.RefreshToken))

	_, err = svc.Refresh(RefreshInput{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	// Logging out an unknown token is not an error.
	require.NoError(t, svc.Logout("already-gone"))
}
