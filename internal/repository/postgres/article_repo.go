package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// ArticleRepo реализует repository.ArticleRepository
type ArticleRepo struct {
	db *gorm.DB
}

// NewArticleRepo создает новый репозиторий статей
func NewArticleRepo(db *gorm.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

// Create создает новую статью
func (r *ArticleRepo) Create(article *entity.Article) error {
	return r.db.Create(article).Error
}

// GetByID возвращает статью по ID
func (r *ArticleRepo) GetByID(id uint) (*entity.Article, error) {
	var article entity.Article
	err := r.db.First(&article, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// GetBySlug возвращает статью по slug
func (r *ArticleRepo) GetBySlug(slug string) (*entity.Article, error) {
	var article entity.Article
	err := r.db.Where("slug = ?", slug).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// Update обновляет статью
func (r *ArticleRepo) Update(article *entity.Article) error {
	return r.db.Save(article).Error
}

// Delete удаляет статью
func (r *ArticleRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Article{}, id).Error
}

// List возвращает статьи с фильтром по статусу
func (r *ArticleRepo) List(status string, limit, offset int) ([]entity.Article, int64, error) {
	query := r.db.Model(&entity.Article{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []entity.Article
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&articles).Error
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}
