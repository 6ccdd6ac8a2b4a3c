package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// ArticleService управляет редакционными статьями
type ArticleService struct {
	articleRepo repository.ArticleRepository
	listingRepo repository.ListingRepository
	aiClient    AIClient
}

// NewArticleService создает новый сервис статей
func NewArticleService(
	articleRepo repository.ArticleRepository,
	listingRepo repository.ListingRepository,
	aiClient AIClient,
) *ArticleService {
	return &ArticleService{
		articleRepo: articleRepo,
		listingRepo: listingRepo,
		aiClient:    aiClient,
	}
}

// Create создает черновик статьи
func (s *ArticleService) Create(authorID uint, title, body string) (*entity.Article, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	article := &entity.Article{
		AuthorID: authorID,
		Title:    strings.TrimSpace(title),
		Slug:     Slugify(title),
		Body:     body,
		Status:   entity.ArticleStatusDraft,
	}
	if existing, err := s.articleRepo.GetBySlug(article.Slug); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: article with this title already exists", apperrors.ErrConflict)
	}
	if err := s.articleRepo.Create(article); err != nil {
		return nil, err
	}
	return article, nil
}

// Generate создает черновик статьи по теме с помощью AI-ассистента.
// Сгенерированный текст помечается флагом ai_generated.
func (s *ArticleService) Generate(ctx context.Context, authorID uint, topic string) (*entity.Article, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", apperrors.ErrValidation)
	}

	prompt := fmt.Sprintf("Write an article for a car marketplace magazine on the topic: %s.", topic)
	body, err := s.aiClient.GenerateText(ctx, articleSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("article generation failed: %w", err)
	}

	article := &entity.Article{
		AuthorID:    authorID,
		Title:       topic,
		Slug:        Slugify(topic),
		Body:        body,
		AIGenerated: true,
		Status:      entity.ArticleStatusDraft,
	}
	if err := s.articleRepo.Create(article); err != nil {
		return nil, err
	}
	return article, nil
}

// GenerateListingDescription генерирует описание для объявления продавца.
// Текст возвращается для предпросмотра, сохранение — отдельной операцией.
func (s *ArticleService) GenerateListingDescription(ctx context.Context, listingID, actorID uint, actorRole string) (string, error) {
	listing, err := s.listingRepo.GetByID(listingID)
	if err != nil {
		return "", err
	}
	if listing.SellerID != actorID && actorRole != entity.RoleAdmin {
		return "", ErrNotListingOwner
	}
	return s.aiClient.GenerateText(ctx, listingDescriptionSystem, listingDescriptionPrompt(listing))
}

// Update обновляет статью. Ручная правка снимает флаг ai_generated.
func (s *ArticleService) Update(id uint, title, body string) (*entity.Article, error) {
	article, err := s.articleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) != "" {
		article.Title = strings.TrimSpace(title)
	}
	if body != article.Body {
		article.Body = body
		article.AIGenerated = false
	}
	if err := s.articleRepo.Update(article); err != nil {
		return nil, err
	}
	return article, nil
}

// Publish публикует статью
func (s *ArticleService) Publish(id uint) (*entity.Article, error) {
	article, err := s.articleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if article.Status == entity.ArticleStatusPublished {
		return article, nil
	}
	now := time.Now()
	article.Status = entity.ArticleStatusPublished
	article.PublishedAt = &now
	if err := s.articleRepo.Update(article); err != nil {
		return nil, err
	}
	return article, nil
}

// Delete удаляет статью
func (s *ArticleService) Delete(id uint) error {
	return s.articleRepo.Delete(id)
}

// GetBySlug возвращает опубликованную статью по slug
func (s *ArticleService) GetBySlug(slug string) (*entity.Article, error) {
	article, err := s.articleRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if article.Status != entity.ArticleStatusPublished {
		return nil, apperrors.ErrNotFound
	}
	return article, nil
}

// List возвращает страницу статей; пустой статус — все статьи (админ)
func (s *ArticleService) List(status string, limit, offset int) ([]entity.Article, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.articleRepo.List(status, limit, offset)
}
