package repository

import "github.com/yourusername/carmarket-api/internal/domain/entity"

// ListingFilter задает параметры поиска объявлений
type ListingFilter struct {
	Make      string
	Model     string
	City      string
	Condition string
	YearFrom  int
	YearTo    int
	PriceFrom int64
	PriceTo   int64
	DealerID  *uint
	Status    string
	Limit     int
	Offset    int
}

// ListingRepository определяет методы для работы с объявлениями
type ListingRepository interface {
	Create(listing *entity.Listing) error
	GetByID(id uint) (*entity.Listing, error)
	Update(listing *entity.Listing) error
	UpdateFields(listingID uint, updates map[string]interface{}) error
	Delete(id uint) error

	// Search возвращает страницу объявлений по фильтру и общее количество
	Search(filter ListingFilter) ([]entity.Listing, int64, error)

	ListBySeller(sellerID uint, limit, offset int) ([]entity.Listing, error)
}
