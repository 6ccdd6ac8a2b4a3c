package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// ListingRepo реализует repository.ListingRepository
type ListingRepo struct {
	db *gorm.DB
}

// NewListingRepo создает новый репозиторий объявлений
func NewListingRepo(db *gorm.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

// Create создает новое объявление
func (r *ListingRepo) Create(listing *entity.Listing) error {
	return r.db.Create(listing).Error
}

// GetByID возвращает объявление по ID
func (r *ListingRepo) GetByID(id uint) (*entity.Listing, error) {
	var listing entity.Listing
	err := r.db.First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// Update обновляет объявление целиком
func (r *ListingRepo) Update(listing *entity.Listing) error {
	return r.db.Save(listing).Error
}

// UpdateFields обновляет только указанные поля
func (r *ListingRepo) UpdateFields(listingID uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.Model(&entity.Listing{}).Where("id = ?", listingID).Updates(updates).Error
}

// Delete удаляет объявление
func (r *ListingRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Listing{}, id).Error
}

// Search возвращает страницу объявлений по фильтру и общее количество
func (r *ListingRepo) Search(filter repository.ListingFilter) ([]entity.Listing, int64, error) {
	query := r.db.Model(&entity.Listing{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Make != "" {
		query = query.Where("make ILIKE ?", filter.Make)
	}
	if filter.Model != "" {
		query = query.Where("model ILIKE ?", filter.Model+"%")
	}
	if filter.City != "" {
		query = query.Where("city ILIKE ?", filter.City)
	}
	if filter.Condition != "" {
		query = query.Where("condition = ?", filter.Condition)
	}
	if filter.YearFrom > 0 {
		query = query.Where("year >= ?", filter.YearFrom)
	}
	if filter.YearTo > 0 {
		query = query.Where("year <= ?", filter.YearTo)
	}
	if filter.PriceFrom > 0 {
		query = query.Where("price >= ?", filter.PriceFrom)
	}
	if filter.PriceTo > 0 {
		query = query.Where("price <= ?", filter.PriceTo)
	}
	if filter.DealerID != nil {
		query = query.Where("dealer_id = ?", *filter.DealerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var listings []entity.Listing
	err := query.
		Order("published_at DESC NULLS LAST, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// ListBySeller возвращает объявления продавца
func (r *ListingRepo) ListBySeller(sellerID uint, limit, offset int) ([]entity.Listing, error) {
	var listings []entity.Listing
	err := r.db.
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error
	return listings, err
}
