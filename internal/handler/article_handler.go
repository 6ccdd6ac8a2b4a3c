package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/service"
)

// ArticleHandler обрабатывает запросы статей блога
type ArticleHandler struct {
	articleService *service.ArticleService
}

// NewArticleHandler создает новый обработчик статей
func NewArticleHandler(articleService *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articleService: articleService}
}

// ArticleRequest представляет данные статьи
type ArticleRequest struct {
	Title string `json:"title" binding:"required,max=200"`
	Body  string `json:"body" binding:"omitempty"`
}

// GenerateArticleRequest — запрос на генерацию статьи по теме
type GenerateArticleRequest struct {
	Topic string `json:"topic" binding:"required,max=300"`
}

// Create создает черновик статьи (только админ)
func (h *ArticleHandler) Create(c *gin.Context) {
	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	article, err := h.articleService.Create(currentUserID(c), req.Title, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": article})
}

// Generate создает черновик статьи с телом, сгенерированным AI
func (h *ArticleHandler) Generate(c *gin.Context) {
	var req GenerateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	article, err := h.articleService.Generate(c.Request.Context(), currentUserID(c), req.Topic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": article})
}

// Update обновляет статью
func (h *ArticleHandler) Update(c *gin.Context) {
	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	article, err := h.articleService.Update(c.GetUint("article_id"), req.Title, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

// Publish публикует статью
func (h *ArticleHandler) Publish(c *gin.Context) {
	article, err := h.articleService.Publish(c.GetUint("article_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

// Delete удаляет статью
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.articleService.Delete(c.GetUint("article_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetBySlug возвращает опубликованную статью по slug
func (h *ArticleHandler) GetBySlug(c *gin.Context) {
	article, err := h.articleService.GetBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

// List возвращает опубликованные статьи
func (h *ArticleHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	articles, total, err := h.articleService.List("published", limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "total": total})
}

// ListAll возвращает статьи любого статуса (только админ)
func (h *ArticleHandler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	articles, total, err := h.articleService.List(c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "total": total})
}
