package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/service"
)

// DealerHandler обрабатывает запросы заявок и профилей дилеров
type DealerHandler struct {
	dealerService *service.DealerService
}

// NewDealerHandler создает новый обработчик дилеров
func NewDealerHandler(dealerService *service.DealerService) *DealerHandler {
	return &DealerHandler{dealerService: dealerService}
}

// ApplyRequest представляет заявку на регистрацию дилера
type ApplyRequest struct {
	CompanyName string `json:"company_name" binding:"required,min=3,max=150"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"required"`
	City        string `json:"city" binding:"omitempty,max=100"`
	Address     string `json:"address" binding:"omitempty,max=255"`
}

// UpdateDealerRequest — правка публичного профиля дилера
type UpdateDealerRequest struct {
	City    string `json:"city" binding:"omitempty,max=100"`
	Address string `json:"address" binding:"omitempty,max=255"`
	About   string `json:"about" binding:"omitempty,max=5000"`
}

// Apply создает заявку и отправляет OTP
func (h *DealerHandler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	app, result, err := h.dealerService.Apply(c.Request.Context(), service.ApplicationInput{
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Phone:       req.Phone,
		City:        req.City,
		Address:     req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	payload := sendOTPPayload(result)
	payload["application_id"] = app.ID
	payload["application_expires_at"] = app.ExpiresAt
	c.JSON(http.StatusCreated, payload)
}

// VerifyApplication подтверждает заявку и создает дилера
func (h *DealerHandler) VerifyApplication(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	dealer, err := h.dealerService.VerifyApplication(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "dealer": dealer})
}

// GetBySlug возвращает дилера по slug с нечетким сопоставлением
func (h *DealerHandler) GetBySlug(c *gin.Context) {
	dealer, err := h.dealerService.ResolveSlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dealer": dealer})
}

// List возвращает страницу дилеров
func (h *DealerHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	dealers, total, err := h.dealerService.List(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dealers": dealers, "total": total})
}

// ListApplications возвращает заявки (только админ)
func (h *DealerHandler) ListApplications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	apps, total, err := h.dealerService.ListApplications(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "total": total})
}

// UpdateProfile обновляет профиль дилера текущего пользователя
func (h *DealerHandler) UpdateProfile(c *gin.Context) {
	var req UpdateDealerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	dealer, err := h.dealerService.UpdateProfile(currentUserID(c), req.City, req.Address, req.About)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dealer": dealer})
}

// MyDealer возвращает дилерский профиль текущего пользователя
func (h *DealerHandler) MyDealer(c *gin.Context) {
	dealer, err := h.dealerService.GetByOwner(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dealer": dealer})
}
