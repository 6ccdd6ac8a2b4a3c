package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// DealerRepo реализует repository.DealerRepository
type DealerRepo struct {
	db *gorm.DB
}

// NewDealerRepo создает новый репозиторий дилеров
func NewDealerRepo(db *gorm.DB) *DealerRepo {
	return &DealerRepo{db: db}
}

// Create создает нового дилера
func (r *DealerRepo) Create(dealer *entity.Dealer) error {
	return r.db.Create(dealer).Error
}

// GetByID возвращает дилера по ID
func (r *DealerRepo) GetByID(id uint) (*entity.Dealer, error) {
	var dealer entity.Dealer
	err := r.db.First(&dealer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &dealer, nil
}

// GetBySlug возвращает дилера по точному slug
func (r *DealerRepo) GetBySlug(slug string) (*entity.Dealer, error) {
	var dealer entity.Dealer
	err := r.db.Where("slug = ?", slug).First(&dealer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &dealer, nil
}

// GetByOwnerUserID возвращает дилера по владельцу
func (r *DealerRepo) GetByOwnerUserID(userID uint) (*entity.Dealer, error) {
	var dealer entity.Dealer
	err := r.db.Where("owner_user_id = ?", userID).First(&dealer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &dealer, nil
}

// FindSlugCandidates возвращает дилеров, чей slug начинается с prefix
func (r *DealerRepo) FindSlugCandidates(prefix string, limit int) ([]entity.Dealer, error) {
	var dealers []entity.Dealer
	err := r.db.
		Where("slug ILIKE ?", prefix+"%").
		Order("slug").
		Limit(limit).
		Find(&dealers).Error
	return dealers, err
}

// Update обновляет информацию о дилере
func (r *DealerRepo) Update(dealer *entity.Dealer) error {
	return r.db.Save(dealer).Error
}

// List возвращает дилеров с пагинацией и общим количеством
func (r *DealerRepo) List(limit, offset int) ([]entity.Dealer, int64, error) {
	var dealers []entity.Dealer
	var total int64

	if err := r.db.Model(&entity.Dealer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("company_name").Limit(limit).Offset(offset).Find(&dealers).Error
	if err != nil {
		return nil, 0, err
	}
	return dealers, total, nil
}
