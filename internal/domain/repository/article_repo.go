package repository

import "github.com/yourusername/carmarket-api/internal/domain/entity"

// ArticleRepository определяет методы для работы со статьями
type ArticleRepository interface {
	Create(article *entity.Article) error
	GetByID(id uint) (*entity.Article, error)
	GetBySlug(slug string) (*entity.Article, error)
	Update(article *entity.Article) error
	Delete(id uint) error
	List(status string, limit, offset int) ([]entity.Article, int64, error)
}
