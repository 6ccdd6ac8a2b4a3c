package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	"github.com/yourusername/carmarket-api/internal/service"
)

// ListingHandler обрабатывает запросы объявлений
type ListingHandler struct {
	listingService *service.ListingService
	articleService *service.ArticleService
}

// NewListingHandler создает новый обработчик объявлений
func NewListingHandler(listingService *service.ListingService, articleService *service.ArticleService) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		articleService: articleService,
	}
}

// ListingRequest представляет данные объявления
type ListingRequest struct {
	Make        string `json:"make" binding:"required,max=50"`
	Model       string `json:"model" binding:"required,max=80"`
	Year        int    `json:"year" binding:"required"`
	Mileage     int64  `json:"mileage" binding:"omitempty,min=0"`
	Price       int64  `json:"price" binding:"required,min=1"`
	Condition   string `json:"condition" binding:"required,oneof=new used"`
	City        string `json:"city" binding:"omitempty,max=100"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"omitempty"`
}

// SetDescriptionRequest — сохранение описания (в т.ч. сгенерированного)
type SetDescriptionRequest struct {
	Description string `json:"description" binding:"required"`
	AIGenerated bool   `json:"ai_generated"`
}

func (r *ListingRequest) toInput() service.ListingInput {
	return service.ListingInput{
		Make:        r.Make,
		Model:       r.Model,
		Year:        r.Year,
		Mileage:     r.Mileage,
		Price:       r.Price,
		Condition:   r.Condition,
		City:        r.City,
		Title:       r.Title,
		Description: r.Description,
	}
}

// Create создает черновик объявления
func (h *ListingHandler) Create(c *gin.Context) {
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	listing, err := h.listingService.Create(currentUserID(c), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": listing})
}

// Get возвращает объявление по ID
func (h *ListingHandler) Get(c *gin.Context) {
	listing, err := h.listingService.GetByID(c.GetUint("listing_id"), currentUserID(c), currentRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// Update обновляет объявление
func (h *ListingHandler) Update(c *gin.Context) {
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	listing, err := h.listingService.Update(c.GetUint("listing_id"), currentUserID(c), currentRole(c), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// Publish публикует черновик
func (h *ListingHandler) Publish(c *gin.Context) {
	listing, err := h.listingService.Publish(c.GetUint("listing_id"), currentUserID(c), currentRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// MarkSold помечает объявление проданным
func (h *ListingHandler) MarkSold(c *gin.Context) {
	listing, err := h.listingService.MarkSold(c.GetUint("listing_id"), currentUserID(c), currentRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// Delete удаляет объявление
func (h *ListingHandler) Delete(c *gin.Context) {
	if err := h.listingService.Delete(c.GetUint("listing_id"), currentUserID(c), currentRole(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Search ищет опубликованные объявления по фильтрам из query-параметров
func (h *ListingHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	yearFrom, _ := strconv.Atoi(c.DefaultQuery("year_from", "0"))
	yearTo, _ := strconv.Atoi(c.DefaultQuery("year_to", "0"))
	priceFrom, _ := strconv.ParseInt(c.DefaultQuery("price_from", "0"), 10, 64)
	priceTo, _ := strconv.ParseInt(c.DefaultQuery("price_to", "0"), 10, 64)

	filter := repository.ListingFilter{
		Make:      c.Query("make"),
		Model:     c.Query("model"),
		City:      c.Query("city"),
		Condition: c.Query("condition"),
		YearFrom:  yearFrom,
		YearTo:    yearTo,
		PriceFrom: priceFrom,
		PriceTo:   priceTo,
		Limit:     limit,
		Offset:    offset,
	}
	if dealerIDStr := c.Query("dealer_id"); dealerIDStr != "" {
		if dealerID, err := strconv.ParseUint(dealerIDStr, 10, 32); err == nil {
			id := uint(dealerID)
			filter.DealerID = &id
		}
	}

	result, err := h.listingService.Search(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MyListings возвращает объявления текущего продавца, включая черновики
func (h *ListingHandler) MyListings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	listings, err := h.listingService.ListBySeller(currentUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// GenerateDescription генерирует описание объявления AI-ассистентом
// и возвращает его для предпросмотра
func (h *ListingHandler) GenerateDescription(c *gin.Context) {
	description, err := h.articleService.GenerateListingDescription(
		c.Request.Context(), c.GetUint("listing_id"), currentUserID(c), currentRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": description, "ai_generated": true})
}

// SetDescription сохраняет описание объявления
func (h *ListingHandler) SetDescription(c *gin.Context) {
	var req SetDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	listing, err := h.listingService.SetDescription(
		c.GetUint("listing_id"), currentUserID(c), currentRole(c), req.Description, req.AIGenerated)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}
