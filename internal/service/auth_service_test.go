package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
	"github.com/yourusername/carmarket-api/pkg/auth"
)

// MockUserRepo - мок для тестирования без реальной БД
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(username string) (*entity.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByPhone(phone string) (*entity.User, error) {
	args := m.Called(phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) UpdateProfile(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockUserRepo) UpdatePassword(userID uint, newPassword string) error {
	args := m.Called(userID, newPassword)
	return args.Error(0)
}

func (m *MockUserRepo) ClaimOTP(userID uint, code string, expiresAt, threshold time.Time) (bool, error) {
	args := m.Called(userID, code, expiresAt, threshold)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) IncrementOTPAttempts(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepo) ClearOTP(userID uint, extra map[string]interface{}) error {
	args := m.Called(userID, extra)
	return args.Error(0)
}

func (m *MockUserRepo) SetResetToken(userID uint, token string, expiry time.Time) error {
	args := m.Called(userID, token, expiry)
	return args.Error(0)
}

func (m *MockUserRepo) GetByResetToken(token string) (*entity.User, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) ClearResetToken(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepo) List(limit, offset int) ([]entity.User, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockSessionRepo - мок репозитория refresh-сессий
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(session *entity.Session) (uint, error) {
	args := m.Called(session)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockSessionRepo) GetByTokenHash(tokenHash string) (*entity.Session, error) {
	args := m.Called(tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepo) GetByID(id uint) (*entity.Session, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepo) Revoke(id uint, reason string) error {
	args := m.Called(id, reason)
	return args.Error(0)
}

func (m *MockSessionRepo) RevokeAllForUser(userID uint, reason string) error {
	args := m.Called(userID, reason)
	return args.Error(0)
}

func (m *MockSessionRepo) GetActiveForUser(userID uint) ([]*entity.Session, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Session), args.Error(1)
}

func (m *MockSessionRepo) CleanupExpired() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func newTestAuthService(t *testing.T, userRepo *MockUserRepo, sessionRepo *MockSessionRepo) *AuthService {
	t.Helper()
	verification, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)
	jwtService, err := auth.NewJWTService("test-secret", 1, time.Hour)
	require.NoError(t, err)
	return NewAuthService(userRepo, sessionRepo, verification, jwtService, &NoopEmailService{})
}

func TestAuthService_Register_Success(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	userRepo.On("GetByPhone", "+628123456789").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByEmail", "budi@example.com").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByUsername", "budi").Return(nil, apperrors.ErrNotFound)
	userRepo.On("Create", mock.AnythingOfType("*entity.User")).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.User).ID = 1
	}).Return(nil)
	userRepo.On("ClaimOTP", uint(1), mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(true, nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	user, result, err := svc.Register(context.Background(), RegisterInput{
		Username: "budi",
		Email:    "budi@example.com",
		Password: "password123",
		Phone:    "08123456789", // локальный формат нормализуется в +62
	})

	require.NoError(t, err)
	assert.Equal(t, "+628123456789", user.Phone)
	assert.False(t, user.Active)
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.True(t, result.Delivery.UsedDummy)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Register_PhoneTaken(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	userRepo.On("GetByPhone", "+628123456789").Return(&entity.User{ID: 5, Active: true}, nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "budi",
		Email:    "budi@example.com",
		Password: "password123",
		Phone:    "+628123456789",
	})

	assert.True(t, errors.Is(err, ErrPhoneTaken))
	userRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_Register_InvalidPhone(t *testing.T) {
	svc := newTestAuthService(t, new(MockUserRepo), new(MockSessionRepo))

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "budi",
		Email:    "budi@example.com",
		Password: "password123",
		Phone:    "12345",
	})

	assert.True(t, errors.Is(err, ErrInvalidPhone))
}

func TestAuthService_VerifyRegistration_ActivatesAccount(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	pending := &entity.User{
		ID:           1,
		Phone:        "+628123456789",
		Active:       false,
		OTPCode:      strPtr("123456"),
		OTPExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
	}
	activated := &entity.User{ID: 1, Phone: "+628123456789", Active: true}

	userRepo.On("GetByPhone", "+628123456789").Return(pending, nil)
	userRepo.On("GetByID", uint(1)).Return(pending, nil).Once()
	userRepo.On("ClearOTP", uint(1), mock.MatchedBy(func(extra map[string]interface{}) bool {
		return extra["active"] == true
	})).Return(nil)
	userRepo.On("GetByID", uint(1)).Return(activated, nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	user, err := svc.VerifyRegistration(context.Background(), "+628123456789", "123456")

	require.NoError(t, err)
	assert.True(t, user.Active)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	user := &entity.User{ID: 1, Email: "budi@example.com", Active: false}
	user.Password = hashPassword(t, "password123")

	userRepo.On("GetByEmail", "budi@example.com").Return(user, nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	_, _, err := svc.Login(context.Background(), "budi@example.com", "password123", ClientInfo{})
	assert.True(t, errors.Is(err, ErrAccountInactive))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	user := &entity.User{ID: 1, Email: "budi@example.com", Active: true}
	user.Password = hashPassword(t, "password123")

	userRepo.On("GetByEmail", "budi@example.com").Return(user, nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	_, _, err := svc.Login(context.Background(), "budi@example.com", "wrong-password", ClientInfo{})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestAuthService_Login_Success(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	user := &entity.User{ID: 1, Email: "budi@example.com", Role: entity.RoleUser, Active: true}
	user.Password = hashPassword(t, "password123")

	userRepo.On("GetByEmail", "budi@example.com").Return(user, nil)
	sessionRepo.On("Create", mock.AnythingOfType("*entity.Session")).Return(uint(1), nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	_, pair, err := svc.Login(context.Background(), "budi@example.com", "password123", ClientInfo{DeviceID: "dev-1"})

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Regexp(t, `^[0-9a-f]{64}$`, pair.RefreshToken)
	sessionRepo.AssertExpectations(t)
}

func TestAuthService_VerifyPasswordResetOTP_IssuesToken(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	user := &entity.User{
		ID:           1,
		Phone:        "+628123456789",
		Active:       true,
		OTPCode:      strPtr("123456"),
		OTPExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
	}

	userRepo.On("GetByPhone", "+628123456789").Return(user, nil)
	userRepo.On("GetByID", uint(1)).Return(user, nil)

	var savedExtra map[string]interface{}
	userRepo.On("ClearOTP", uint(1), mock.AnythingOfType("map[string]interface {}")).
		Run(func(args mock.Arguments) {
			savedExtra = args.Get(1).(map[string]interface{})
		}).Return(nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	token, err := svc.VerifyPasswordResetOTP(context.Background(), "+628123456789", "123456")

	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{64}$`, token)
	// Токен записан тем же UPDATE, что и сброс OTP-состояния
	assert.Equal(t, token, savedExtra["reset_token"])
}

func TestAuthService_ResetPassword_ExpiredToken(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	token, _, err := GenerateResetToken()
	require.NoError(t, err)

	expired := time.Now().Add(-time.Minute)
	user := &entity.User{ID: 1, ResetToken: &token, ResetTokenExpiry: &expired}

	userRepo.On("GetByResetToken", token).Return(user, nil)
	userRepo.On("ClearResetToken", uint(1)).Return(nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	err = svc.ResetPassword(context.Background(), token, "new-password-1")
	assert.True(t, errors.Is(err, ErrResetTokenInvalid))
	userRepo.AssertNotCalled(t, "UpdatePassword")
}

func TestAuthService_ResetPassword_SingleUse(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	token, expiry, err := GenerateResetToken()
	require.NoError(t, err)

	user := &entity.User{ID: 1, ResetToken: &token, ResetTokenExpiry: &expiry}

	// Первый вызов: токен действует
	userRepo.On("GetByResetToken", token).Return(user, nil).Once()
	userRepo.On("UpdatePassword", uint(1), "new-password-1").Return(nil)
	userRepo.On("ClearResetToken", uint(1)).Return(nil)
	sessionRepo.On("RevokeAllForUser", uint(1), "password_reset").Return(nil)
	// Второй вызов: токен уже обнулен
	userRepo.On("GetByResetToken", token).Return(nil, apperrors.ErrNotFound)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	require.NoError(t, svc.ResetPassword(context.Background(), token, "new-password-1"))

	err = svc.ResetPassword(context.Background(), token, "another-password")
	assert.True(t, errors.Is(err, ErrResetTokenInvalid))
}

func TestAuthService_ResetPassword_MalformedToken(t *testing.T) {
	svc := newTestAuthService(t, new(MockUserRepo), new(MockSessionRepo))

	for _, token := range []string{"", "short", "ZZZZ", "не-hex-токен"} {
		err := svc.ResetPassword(context.Background(), token, "new-password-1")
		assert.True(t, errors.Is(err, ErrResetTokenInvalid), "token %q", token)
	}
}

func TestAuthService_RefreshTokens_Rotation(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	refreshToken, err := auth.GenerateRefreshToken()
	require.NoError(t, err)

	session := entity.NewSession(1, auth.HashRefreshToken(refreshToken), "dev-1", "", "", time.Now().Add(time.Hour))
	session.ID = 10

	sessionRepo.On("GetByTokenHash", auth.HashRefreshToken(refreshToken)).Return(session, nil)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1, Email: "b@e.c", Role: entity.RoleUser, Active: true}, nil)
	sessionRepo.On("Revoke", uint(10), "rotated").Return(nil)
	sessionRepo.On("Create", mock.AnythingOfType("*entity.Session")).Return(uint(11), nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	pair, err := svc.RefreshTokens(context.Background(), refreshToken, ClientInfo{DeviceID: "dev-1"})

	require.NoError(t, err)
	assert.NotEqual(t, refreshToken, pair.RefreshToken)
	sessionRepo.AssertExpectations(t)
}

func TestAuthService_RefreshTokens_RevokedSession(t *testing.T) {
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	refreshToken, err := auth.GenerateRefreshToken()
	require.NoError(t, err)

	revokedAt := time.Now()
	session := entity.NewSession(1, auth.HashRefreshToken(refreshToken), "dev-1", "", "", time.Now().Add(time.Hour))
	session.ID = 10
	session.RevokedAt = &revokedAt

	sessionRepo.On("GetByTokenHash", auth.HashRefreshToken(refreshToken)).Return(session, nil)

	svc := newTestAuthService(t, userRepo, sessionRepo)

	_, err = svc.RefreshTokens(context.Background(), refreshToken, ClientInfo{})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	sessionRepo.AssertNotCalled(t, "Create")
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	u := &entity.User{Password: plain, Email: "hash@test"}
	require.NoError(t, u.BeforeSave(nil))
	return u.Password
}
