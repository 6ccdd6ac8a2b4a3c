package service

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// listingCacheTTL — срок жизни кешированных страниц поиска
const listingCacheTTL = 2 * time.Minute

// ListingService управляет объявлениями о продаже автомобилей
type ListingService struct {
	listingRepo repository.ListingRepository
	dealerRepo  repository.DealerRepository
	cacheRepo   repository.CacheRepository
}

// NewListingService создает новый сервис объявлений
func NewListingService(
	listingRepo repository.ListingRepository,
	dealerRepo repository.DealerRepository,
	cacheRepo repository.CacheRepository,
) *ListingService {
	return &ListingService{
		listingRepo: listingRepo,
		dealerRepo:  dealerRepo,
		cacheRepo:   cacheRepo,
	}
}

// ListingInput — данные формы создания/редактирования объявления
type ListingInput struct {
	Make        string
	Model       string
	Year        int
	Mileage     int64
	Price       int64
	Condition   string
	City        string
	Title       string
	Description string
}

func (in *ListingInput) validate() error {
	if in.Make == "" || in.Model == "" || in.Title == "" {
		return fmt.Errorf("%w: make, model and title are required", apperrors.ErrValidation)
	}
	if in.Year < 1950 || in.Year > time.Now().Year()+1 {
		return fmt.Errorf("%w: invalid year", apperrors.ErrValidation)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", apperrors.ErrValidation)
	}
	if in.Condition != entity.ConditionNew && in.Condition != entity.ConditionUsed {
		return fmt.Errorf("%w: condition must be new or used", apperrors.ErrValidation)
	}
	return nil
}

// Create создает черновик объявления. Для продавцов-дилеров объявление
// привязывается к их дилерской записи.
func (s *ListingService) Create(sellerID uint, input ListingInput) (*entity.Listing, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	listing := &entity.Listing{
		SellerID:    sellerID,
		Make:        input.Make,
		Model:       input.Model,
		Year:        input.Year,
		Mileage:     input.Mileage,
		Price:       input.Price,
		Condition:   input.Condition,
		City:        input.City,
		Title:       input.Title,
		Description: input.Description,
		Status:      entity.ListingStatusDraft,
	}
	if dealer, err := s.dealerRepo.GetByOwnerUserID(sellerID); err == nil {
		listing.DealerID = &dealer.ID
		if listing.City == "" {
			listing.City = dealer.City
		}
	}

	if err := s.listingRepo.Create(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetByID возвращает объявление. Черновики видны только владельцу и админу.
func (s *ListingService) GetByID(id uint, viewerID uint, viewerRole string) (*entity.Listing, error) {
	listing, err := s.listingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !listing.IsPublished() && listing.SellerID != viewerID && viewerRole != entity.RoleAdmin {
		return nil, apperrors.ErrNotFound
	}
	return listing, nil
}

// Update обновляет объявление (только владелец или админ)
func (s *ListingService) Update(id, actorID uint, actorRole string, input ListingInput) (*entity.Listing, error) {
	listing, err := s.authorize(id, actorID, actorRole)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	listing.Make = input.Make
	listing.Model = input.Model
	listing.Year = input.Year
	listing.Mileage = input.Mileage
	listing.Price = input.Price
	listing.Condition = input.Condition
	listing.City = input.City
	listing.Title = input.Title
	if input.Description != listing.Description {
		listing.Description = input.Description
		listing.AIGenerated = false
	}

	if err := s.listingRepo.Update(listing); err != nil {
		return nil, err
	}
	s.invalidateSearchCache()
	return listing, nil
}

// Publish переводит черновик в опубликованные
func (s *ListingService) Publish(id, actorID uint, actorRole string) (*entity.Listing, error) {
	listing, err := s.authorize(id, actorID, actorRole)
	if err != nil {
		return nil, err
	}
	if listing.Status == entity.ListingStatusSold {
		return nil, fmt.Errorf("%w: listing already sold", apperrors.ErrConflict)
	}
	if listing.IsPublished() {
		return listing, nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       entity.ListingStatusPublished,
		"published_at": now,
	}
	if err := s.listingRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	listing.Status = entity.ListingStatusPublished
	listing.PublishedAt = &now
	s.invalidateSearchCache()
	return listing, nil
}

// MarkSold помечает объявление проданным
func (s *ListingService) MarkSold(id, actorID uint, actorRole string) (*entity.Listing, error) {
	listing, err := s.authorize(id, actorID, actorRole)
	if err != nil {
		return nil, err
	}
	if err := s.listingRepo.UpdateFields(id, map[string]interface{}{"status": entity.ListingStatusSold}); err != nil {
		return nil, err
	}
	listing.Status = entity.ListingStatusSold
	s.invalidateSearchCache()
	return listing, nil
}

// Delete удаляет объявление (только владелец или админ)
func (s *ListingService) Delete(id, actorID uint, actorRole string) error {
	if _, err := s.authorize(id, actorID, actorRole); err != nil {
		return err
	}
	if err := s.listingRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateSearchCache()
	return nil
}

// SearchResult — страница результатов поиска
type SearchResult struct {
	Listings []entity.Listing `json:"listings"`
	Total    int64            `json:"total"`
}

// Search ищет опубликованные объявления. Первая страница без фильтров
// кешируется в Redis.
func (s *ListingService) Search(filter repository.ListingFilter) (*SearchResult, error) {
	filter.Status = entity.ListingStatusPublished
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	cacheKey, cacheable := s.searchCacheKey(filter)
	if cacheable {
		var cached SearchResult
		if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	listings, total, err := s.listingRepo.Search(filter)
	if err != nil {
		return nil, err
	}
	result := &SearchResult{Listings: listings, Total: total}

	if cacheable {
		if err := s.cacheRepo.SetJSON(cacheKey, result, listingCacheTTL); err != nil {
			log.Printf("[ListingService] Ошибка записи кеша поиска: %v", err)
		}
	}
	return result, nil
}

// ListBySeller возвращает объявления продавца, включая черновики
func (s *ListingService) ListBySeller(sellerID uint, limit, offset int) ([]entity.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.listingRepo.ListBySeller(sellerID, limit, offset)
}

// SetDescription сохраняет описание, помечая его происхождение
func (s *ListingService) SetDescription(id, actorID uint, actorRole, description string, aiGenerated bool) (*entity.Listing, error) {
	listing, err := s.authorize(id, actorID, actorRole)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"description":  description,
		"ai_generated": aiGenerated,
	}
	if err := s.listingRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	listing.Description = description
	listing.AIGenerated = aiGenerated
	return listing, nil
}

// authorize возвращает объявление, если actor — владелец или админ
func (s *ListingService) authorize(id, actorID uint, actorRole string) (*entity.Listing, error) {
	listing, err := s.listingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != actorID && actorRole != entity.RoleAdmin {
		return nil, ErrNotListingOwner
	}
	return listing, nil
}

// searchCacheKey возвращает ключ кеша; кешируются только страницы
// без пользовательских фильтров
func (s *ListingService) searchCacheKey(filter repository.ListingFilter) (string, bool) {
	if filter.Make != "" || filter.Model != "" || filter.City != "" || filter.Condition != "" ||
		filter.YearFrom != 0 || filter.YearTo != 0 || filter.PriceFrom != 0 || filter.PriceTo != 0 ||
		filter.DealerID != nil {
		return "", false
	}
	return fmt.Sprintf("listings:search:%d:%d", filter.Limit, filter.Offset), true
}

func (s *ListingService) invalidateSearchCache() {
	if err := s.cacheRepo.DeleteByPattern("listings:search:*"); err != nil {
		log.Printf("[ListingService] Ошибка инвалидации кеша поиска: %v", err)
	}
}
