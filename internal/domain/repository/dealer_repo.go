package repository

import "github.com/yourusername/carmarket-api/internal/domain/entity"

// DealerRepository определяет методы для работы с дилерами
type DealerRepository interface {
	Create(dealer *entity.Dealer) error
	GetByID(id uint) (*entity.Dealer, error)
	GetBySlug(slug string) (*entity.Dealer, error)
	GetByOwnerUserID(userID uint) (*entity.Dealer, error)

	// FindSlugCandidates возвращает дилеров, чей slug начинается с prefix.
	// Используется для нечеткого сопоставления slug при опечатках в URL.
	FindSlugCandidates(prefix string, limit int) ([]entity.Dealer, error)

	Update(dealer *entity.Dealer) error
	List(limit, offset int) ([]entity.Dealer, int64, error)
}
