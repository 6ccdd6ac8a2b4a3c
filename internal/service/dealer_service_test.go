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
)

// MockDealerApplicationRepo - мок репозитория заявок
type MockDealerApplicationRepo struct {
	mock.Mock
}

func (m *MockDealerApplicationRepo) Create(app *entity.DealerApplication) error {
	args := m.Called(app)
	return args.Error(0)
}

func (m *MockDealerApplicationRepo) GetByID(id uint) (*entity.DealerApplication, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DealerApplication), args.Error(1)
}

func (m *MockDealerApplicationRepo) GetActiveByPhone(phone string, now time.Time) (*entity.DealerApplication, error) {
	args := m.Called(phone, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DealerApplication), args.Error(1)
}

func (m *MockDealerApplicationRepo) ClaimOTP(appID uint, code string, expiresAt, threshold time.Time) (bool, error) {
	args := m.Called(appID, code, expiresAt, threshold)
	return args.Bool(0), args.Error(1)
}

func (m *MockDealerApplicationRepo) IncrementOTPAttempts(appID uint) error {
	args := m.Called(appID)
	return args.Error(0)
}

func (m *MockDealerApplicationRepo) ClearOTP(appID uint, extra map[string]interface{}) error {
	args := m.Called(appID, extra)
	return args.Error(0)
}

func (m *MockDealerApplicationRepo) MarkVerified(appID uint) error {
	args := m.Called(appID)
	return args.Error(0)
}

func (m *MockDealerApplicationRepo) List(limit, offset int) ([]entity.DealerApplication, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.DealerApplication), args.Get(1).(int64), args.Error(2)
}

// MockDealerRepo - мок репозитория дилеров
type MockDealerRepo struct {
	mock.Mock
}

func (m *MockDealerRepo) Create(dealer *entity.Dealer) error {
	args := m.Called(dealer)
	return args.Error(0)
}

func (m *MockDealerRepo) GetByID(id uint) (*entity.Dealer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Dealer), args.Error(1)
}

func (m *MockDealerRepo) GetBySlug(slug string) (*entity.Dealer, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Dealer), args.Error(1)
}

func (m *MockDealerRepo) GetByOwnerUserID(userID uint) (*entity.Dealer, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Dealer), args.Error(1)
}

func (m *MockDealerRepo) FindSlugCandidates(prefix string, limit int) ([]entity.Dealer, error) {
	args := m.Called(prefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Dealer), args.Error(1)
}

func (m *MockDealerRepo) Update(dealer *entity.Dealer) error {
	args := m.Called(dealer)
	return args.Error(0)
}

func (m *MockDealerRepo) List(limit, offset int) ([]entity.Dealer, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Dealer), args.Get(1).(int64), args.Error(2)
}

func newTestDealerService(t *testing.T, appRepo *MockDealerApplicationRepo, dealerRepo *MockDealerRepo, userRepo *MockUserRepo) *DealerService {
	t.Helper()
	verification, err := NewVerificationService(NewDummyWhatsAppSender(), "CarMarket")
	require.NoError(t, err)
	return NewDealerService(appRepo, dealerRepo, userRepo, verification)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"PT Mobil Jaya", "pt-mobil-jaya"},
		{"  Auto  2000  ", "auto-2000"},
		{"Sinar-Motor!", "sinar-motor"},
		{"UPPER case", "upper-case"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Slugify(tt.name), "input %q", tt.name)
	}
}

func TestDealerService_Apply_CreatesApplication(t *testing.T) {
	appRepo := new(MockDealerApplicationRepo)
	dealerRepo := new(MockDealerRepo)
	userRepo := new(MockUserRepo)

	userRepo.On("GetByPhone", "+628123456789").Return(nil, apperrors.ErrNotFound)
	appRepo.On("GetActiveByPhone", "+628123456789", mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.ErrNotFound)
	appRepo.On("Create", mock.AnythingOfType("*entity.DealerApplication")).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.DealerApplication).ID = 3
	}).Return(nil)
	appRepo.On("ClaimOTP", uint(3), mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(true, nil)

	svc := newTestDealerService(t, appRepo, dealerRepo, userRepo)

	app, result, err := svc.Apply(context.Background(), ApplicationInput{
		CompanyName: "PT Mobil Jaya",
		Email:       "sales@mobiljaya.co.id",
		Phone:       "08123456789",
		City:        "Jakarta",
	})

	require.NoError(t, err)
	assert.Equal(t, "pt-mobil-jaya", app.Slug)
	assert.Equal(t, "+628123456789", app.Phone)
	assert.WithinDuration(t, time.Now().Add(ApplicationTTL), app.ExpiresAt, 2*time.Second)
	assert.True(t, result.Delivery.UsedDummy)
	appRepo.AssertExpectations(t)
}

func TestDealerService_Apply_ContinuesActiveApplication(t *testing.T) {
	appRepo := new(MockDealerApplicationRepo)
	dealerRepo := new(MockDealerRepo)
	userRepo := new(MockUserRepo)

	existing := &entity.DealerApplication{
		ID:        7,
		Phone:     "+628123456789",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	userRepo.On("GetByPhone", "+628123456789").Return(nil, apperrors.ErrNotFound)
	appRepo.On("GetActiveByPhone", "+628123456789", mock.AnythingOfType("time.Time")).
		Return(existing, nil)
	appRepo.On("ClaimOTP", uint(7), mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(true, nil)

	svc := newTestDealerService(t, appRepo, dealerRepo, userRepo)

	app, _, err := svc.Apply(context.Background(), ApplicationInput{
		CompanyName: "PT Mobil Jaya",
		Phone:       "+628123456789",
	})

	require.NoError(t, err)
	assert.Equal(t, uint(7), app.ID)
	appRepo.AssertNotCalled(t, "Create")
}

func TestDealerService_VerifyApplication_MaterializesDealer(t *testing.T) {
	appRepo := new(MockDealerApplicationRepo)
	dealerRepo := new(MockDealerRepo)
	userRepo := new(MockUserRepo)

	app := &entity.DealerApplication{
		ID:           3,
		CompanyName:  "PT Mobil Jaya",
		Slug:         "pt-mobil-jaya",
		Phone:        "+628123456789",
		Email:        "sales@mobiljaya.co.id",
		ExpiresAt:    time.Now().Add(time.Hour),
		OTPCode:      strPtr("123456"),
		OTPExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
	}

	appRepo.On("GetActiveByPhone", "+628123456789", mock.AnythingOfType("time.Time")).Return(app, nil)
	appRepo.On("GetByID", uint(3)).Return(app, nil)
	appRepo.On("ClearOTP", uint(3), mock.Anything).Return(nil)
	appRepo.On("MarkVerified", uint(3)).Return(nil)

	userRepo.On("GetByPhone", "+628123456789").Return(nil, apperrors.ErrNotFound)
	userRepo.On("Create", mock.AnythingOfType("*entity.User")).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.User).ID = 15
	}).Return(nil)

	dealerRepo.On("GetBySlug", "pt-mobil-jaya").Return(nil, apperrors.ErrNotFound)
	dealerRepo.On("Create", mock.AnythingOfType("*entity.Dealer")).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Dealer).ID = 9
	}).Return(nil)

	svc := newTestDealerService(t, appRepo, dealerRepo, userRepo)

	dealer, err := svc.VerifyApplication(context.Background(), "+628123456789", "123456")

	require.NoError(t, err)
	assert.Equal(t, uint(15), dealer.OwnerUserID)
	assert.Equal(t, "pt-mobil-jaya", dealer.Slug)
	assert.True(t, dealer.Verified)

	// Созданный пользователь активен и имеет роль дилера
	createdUser := userRepo.Calls[1].Arguments.Get(0).(*entity.User)
	assert.True(t, createdUser.Active)
	assert.Equal(t, entity.RoleDealer, createdUser.Role)
	appRepo.AssertExpectations(t)
}

func TestDealerService_VerifyApplication_Expired(t *testing.T) {
	appRepo := new(MockDealerApplicationRepo)
	dealerRepo := new(MockDealerRepo)
	userRepo := new(MockUserRepo)

	app := &entity.DealerApplication{
		ID:        3,
		Phone:     "+628123456789",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	appRepo.On("GetActiveByPhone", "+628123456789", mock.AnythingOfType("time.Time")).Return(app, nil)

	svc := newTestDealerService(t, appRepo, dealerRepo, userRepo)

	_, err := svc.VerifyApplication(context.Background(), "+628123456789", "123456")
	assert.True(t, errors.Is(err, ErrApplicationExpired))
	appRepo.AssertNotCalled(t, "MarkVerified")
}

func TestDealerService_ResolveSlug_Exact(t *testing.T) {
	dealerRepo := new(MockDealerRepo)
	dealer := &entity.Dealer{ID: 1, Slug: "pt-mobil-jaya"}
	dealerRepo.On("GetBySlug", "pt-mobil-jaya").Return(dealer, nil)

	svc := newTestDealerService(t, new(MockDealerApplicationRepo), dealerRepo, new(MockUserRepo))

	got, err := svc.ResolveSlug("PT-Mobil-Jaya")
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)
}

func TestDealerService_ResolveSlug_FuzzyFallback(t *testing.T) {
	dealerRepo := new(MockDealerRepo)
	dealerRepo.On("GetBySlug", "ptmobiljaya").Return(nil, apperrors.ErrNotFound)
	dealerRepo.On("FindSlugCandidates", "ptm", 20).Return([]entity.Dealer{
		{ID: 1, Slug: "pt-mobil-jaya"},
		{ID: 2, Slug: "pt-motor-abadi"},
	}, nil)

	svc := newTestDealerService(t, new(MockDealerApplicationRepo), dealerRepo, new(MockUserRepo))

	// Slug без дефисов резолвится через нормализованное сравнение
	got, err := svc.ResolveSlug("ptmobiljaya")
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)
}

func TestDealerService_ResolveSlug_AmbiguousIsNotFound(t *testing.T) {
	dealerRepo := new(MockDealerRepo)
	dealerRepo.On("GetBySlug", "abc").Return(nil, apperrors.ErrNotFound)
	dealerRepo.On("FindSlugCandidates", "abc", 20).Return([]entity.Dealer{
		{ID: 1, Slug: "a-b-c"},
		{ID: 2, Slug: "ab-c"},
	}, nil)

	svc := newTestDealerService(t, new(MockDealerApplicationRepo), dealerRepo, new(MockUserRepo))

	_, err := svc.ResolveSlug("abc")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDealerService_UniqueSlugSuffix(t *testing.T) {
	appRepo := new(MockDealerApplicationRepo)
	dealerRepo := new(MockDealerRepo)
	userRepo := new(MockUserRepo)

	app := &entity.DealerApplication{
		ID:           3,
		CompanyName:  "PT Mobil Jaya",
		Slug:         "pt-mobil-jaya",
		Phone:        "+628123456789",
		ExpiresAt:    time.Now().Add(time.Hour),
		OTPCode:      strPtr("123456"),
		OTPExpiresAt: timePtr(time.Now().Add(3 * time.Minute)),
	}

	appRepo.On("GetActiveByPhone", "+628123456789", mock.AnythingOfType("time.Time")).Return(app, nil)
	appRepo.On("GetByID", uint(3)).Return(app, nil)
	appRepo.On("ClearOTP", uint(3), mock.Anything).Return(nil)
	appRepo.On("MarkVerified", uint(3)).Return(nil)

	userRepo.On("GetByPhone", "+628123456789").Return(&entity.User{ID: 15, Role: entity.RoleDealer}, nil)

	// Базовый slug занят, первый свободный — с суффиксом -2
	dealerRepo.On("GetBySlug", "pt-mobil-jaya").Return(&entity.Dealer{ID: 1}, nil)
	dealerRepo.On("GetBySlug", "pt-mobil-jaya-2").Return(nil, apperrors.ErrNotFound)
	dealerRepo.On("Create", mock.AnythingOfType("*entity.Dealer")).Return(nil)

	svc := newTestDealerService(t, appRepo, dealerRepo, userRepo)

	dealer, err := svc.VerifyApplication(context.Background(), "+628123456789", "123456")
	require.NoError(t, err)
	assert.Equal(t, "pt-mobil-jaya-2", dealer.Slug)
}
