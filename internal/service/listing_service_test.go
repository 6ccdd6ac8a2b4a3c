package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// MockListingRepo - мок репозитория объявлений
type MockListingRepo struct {
	mock.Mock
}

func (m *MockListingRepo) Create(listing *entity.Listing) error {
	args := m.Called(listing)
	return args.Error(0)
}

func (m *MockListingRepo) GetByID(id uint) (*entity.Listing, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Listing), args.Error(1)
}

func (m *MockListingRepo) Update(listing *entity.Listing) error {
	args := m.Called(listing)
	return args.Error(0)
}

func (m *MockListingRepo) UpdateFields(listingID uint, updates map[string]interface{}) error {
	args := m.Called(listingID, updates)
	return args.Error(0)
}

func (m *MockListingRepo) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockListingRepo) Search(filter repository.ListingFilter) ([]entity.Listing, int64, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingRepo) ListBySeller(sellerID uint, limit, offset int) ([]entity.Listing, error) {
	args := m.Called(sellerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Listing), args.Error(1)
}

// MockCacheRepo - мок Redis-кеша
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) DeleteByPattern(pattern string) error {
	args := m.Called(pattern)
	return args.Error(0)
}

func (m *MockCacheRepo) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func validListingInput() ListingInput {
	return ListingInput{
		Make:      "Toyota",
		Model:     "Avanza",
		Year:      2021,
		Mileage:   25000,
		Price:     185000000,
		Condition: entity.ConditionUsed,
		City:      "Jakarta",
		Title:     "Toyota Avanza 2021 istimewa",
	}
}

func TestListingService_Create_PrivateSeller(t *testing.T) {
	listingRepo := new(MockListingRepo)
	dealerRepo := new(MockDealerRepo)
	cacheRepo := new(MockCacheRepo)

	dealerRepo.On("GetByOwnerUserID", uint(5)).Return(nil, apperrors.ErrNotFound)
	listingRepo.On("Create", mock.AnythingOfType("*entity.Listing")).Return(nil)

	svc := NewListingService(listingRepo, dealerRepo, cacheRepo)

	listing, err := svc.Create(5, validListingInput())

	require.NoError(t, err)
	assert.Equal(t, entity.ListingStatusDraft, listing.Status)
	assert.Nil(t, listing.DealerID)
	assert.Equal(t, uint(5), listing.SellerID)
}

func TestListingService_Create_DealerSeller(t *testing.T) {
	listingRepo := new(MockListingRepo)
	dealerRepo := new(MockDealerRepo)
	cacheRepo := new(MockCacheRepo)

	dealerRepo.On("GetByOwnerUserID", uint(5)).Return(&entity.Dealer{ID: 9, City: "Surabaya"}, nil)
	listingRepo.On("Create", mock.AnythingOfType("*entity.Listing")).Return(nil)

	svc := NewListingService(listingRepo, dealerRepo, cacheRepo)

	input := validListingInput()
	input.City = ""
	listing, err := svc.Create(5, input)

	require.NoError(t, err)
	require.NotNil(t, listing.DealerID)
	assert.Equal(t, uint(9), *listing.DealerID)
	// Город наследуется от дилера, если не указан
	assert.Equal(t, "Surabaya", listing.City)
}

func TestListingService_Create_Validation(t *testing.T) {
	svc := NewListingService(new(MockListingRepo), new(MockDealerRepo), new(MockCacheRepo))

	tests := []struct {
		name   string
		mutate func(*ListingInput)
	}{
		{"empty make", func(in *ListingInput) { in.Make = "" }},
		{"zero price", func(in *ListingInput) { in.Price = 0 }},
		{"bad condition", func(in *ListingInput) { in.Condition = "broken" }},
		{"ancient year", func(in *ListingInput) { in.Year = 1900 }},
	}
	for _, tt := range tests {
		input := validListingInput()
		tt.mutate(&input)
		_, err := svc.Create(5, input)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), tt.name)
	}
}

func TestListingService_Publish_SetsTimestamp(t *testing.T) {
	listingRepo := new(MockListingRepo)
	cacheRepo := new(MockCacheRepo)

	listingRepo.On("GetByID", uint(1)).Return(&entity.Listing{ID: 1, SellerID: 5, Status: entity.ListingStatusDraft}, nil)
	listingRepo.On("UpdateFields", uint(1), mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates["status"] == entity.ListingStatusPublished && updates["published_at"] != nil
	})).Return(nil)
	cacheRepo.On("DeleteByPattern", "listings:search:*").Return(nil)

	svc := NewListingService(listingRepo, new(MockDealerRepo), cacheRepo)

	listing, err := svc.Publish(1, 5, entity.RoleUser)

	require.NoError(t, err)
	assert.True(t, listing.IsPublished())
	assert.NotNil(t, listing.PublishedAt)
	listingRepo.AssertExpectations(t)
}

func TestListingService_Publish_NotOwner(t *testing.T) {
	listingRepo := new(MockListingRepo)
	listingRepo.On("GetByID", uint(1)).Return(&entity.Listing{ID: 1, SellerID: 5}, nil)

	svc := NewListingService(listingRepo, new(MockDealerRepo), new(MockCacheRepo))

	_, err := svc.Publish(1, 99, entity.RoleUser)
	assert.True(t, errors.Is(err, ErrNotListingOwner))
}

func TestListingService_Publish_AdminOverride(t *testing.T) {
	listingRepo := new(MockListingRepo)
	cacheRepo := new(MockCacheRepo)

	listingRepo.On("GetByID", uint(1)).Return(&entity.Listing{ID: 1, SellerID: 5, Status: entity.ListingStatusDraft}, nil)
	listingRepo.On("UpdateFields", uint(1), mock.Anything).Return(nil)
	cacheRepo.On("DeleteByPattern", "listings:search:*").Return(nil)

	svc := NewListingService(listingRepo, new(MockDealerRepo), cacheRepo)

	_, err := svc.Publish(1, 99, entity.RoleAdmin)
	assert.NoError(t, err)
}

func TestListingService_GetByID_DraftHiddenFromOthers(t *testing.T) {
	listingRepo := new(MockListingRepo)
	listingRepo.On("GetByID", uint(1)).Return(&entity.Listing{ID: 1, SellerID: 5, Status: entity.ListingStatusDraft}, nil)

	svc := NewListingService(listingRepo, new(MockDealerRepo), new(MockCacheRepo))

	_, err := svc.GetByID(1, 99, entity.RoleUser)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	// Владелец видит свой черновик
	listing, err := svc.GetByID(1, 5, entity.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, uint(1), listing.ID)
}

func TestListingService_Search_CachesDefaultPage(t *testing.T) {
	listingRepo := new(MockListingRepo)
	cacheRepo := new(MockCacheRepo)

	cacheRepo.On("GetJSON", "listings:search:20:0", mock.Anything).Return(apperrors.ErrNotFound)
	listingRepo.On("Search", mock.MatchedBy(func(f repository.ListingFilter) bool {
		return f.Status == entity.ListingStatusPublished && f.Limit == 20
	})).Return([]entity.Listing{{ID: 1}}, int64(1), nil)
	cacheRepo.On("SetJSON", "listings:search:20:0", mock.Anything, listingCacheTTL).Return(nil)

	svc := NewListingService(listingRepo, new(MockDealerRepo), cacheRepo)

	result, err := svc.Search(repository.ListingFilter{})

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	cacheRepo.AssertExpectations(t)
}

func TestListingService_Search_FilteredSkipsCache(t *testing.T) {
	listingRepo := new(MockListingRepo)
	cacheRepo := new(MockCacheRepo)

	listingRepo.On("Search", mock.Anything).Return([]entity.Listing{}, int64(0), nil)

	svc := NewListingService(listingRepo, new(MockDealerRepo), cacheRepo)

	_, err := svc.Search(repository.ListingFilter{Make: "Toyota"})

	require.NoError(t, err)
	cacheRepo.AssertNotCalled(t, "GetJSON")
	cacheRepo.AssertNotCalled(t, "SetJSON")
}
