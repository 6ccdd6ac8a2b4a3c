package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
	"github.com/yourusername/carmarket-api/internal/service"
)

// FinanceHandler обрабатывает финансовые операции: квитанции и отчеты
type FinanceHandler struct {
	financeService *service.FinanceService
	dealerService  *service.DealerService
}

// NewFinanceHandler создает новый финансовый обработчик
func NewFinanceHandler(financeService *service.FinanceService, dealerService *service.DealerService) *FinanceHandler {
	return &FinanceHandler{
		financeService: financeService,
		dealerService:  dealerService,
	}
}

// IssueReceiptRequest — запрос на выпуск квитанции (только админ)
type IssueReceiptRequest struct {
	DealerID    uint   `json:"dealer_id" binding:"required"`
	ListingID   *uint  `json:"listing_id"`
	Amount      int64  `json:"amount" binding:"required,min=1"`
	Description string `json:"description" binding:"required,max=500"`
	IssuedAt    string `json:"issued_at"` // RFC 3339, по умолчанию текущее время
}

// IssueReceipt выпускает квитанцию дилеру
func (h *FinanceHandler) IssueReceipt(c *gin.Context) {
	var req IssueReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	input := service.ReceiptInput{
		DealerID:    req.DealerID,
		ListingID:   req.ListingID,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.IssuedAt != "" {
		issuedAt, err := time.Parse(time.RFC3339, req.IssuedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issued_at, expected RFC 3339", "error_type": "validation_error"})
			return
		}
		input.IssuedAt = issuedAt
	}

	receipt, err := h.financeService.IssueReceipt(input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"receipt": receipt})
}

// VoidReceipt аннулирует квитанцию
func (h *FinanceHandler) VoidReceipt(c *gin.Context) {
	receipt, err := h.financeService.VoidReceipt(c.GetUint("receipt_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

// ListReceipts возвращает квитанции дилера за период
func (h *FinanceHandler) ListReceipts(c *gin.Context) {
	dealer, from, to, ok := h.reportScope(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	receipts, total, err := h.financeService.ListReceipts(dealer.ID, from, to, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts, "total": total})
}

// MonthlyReport возвращает помесячную сводку по квитанциям дилера
func (h *FinanceHandler) MonthlyReport(c *gin.Context) {
	dealer, from, to, ok := h.reportScope(c)
	if !ok {
		return
	}

	report, err := h.financeService.MonthlyReport(dealer.ID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ExportMonthlyReport отдает помесячный отчет в формате XLSX
func (h *FinanceHandler) ExportMonthlyReport(c *gin.Context) {
	dealer, from, to, ok := h.reportScope(c)
	if !ok {
		return
	}

	buf, filename, err := h.financeService.ExportMonthlyReport(dealer.ID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// reportScope определяет дилера и период отчета.
// Дилер видит только свои данные; админ выбирает дилера через ?dealer_id=.
// Период по умолчанию - последние 12 месяцев.
func (h *FinanceHandler) reportScope(c *gin.Context) (*entity.Dealer, time.Time, time.Time, bool) {
	var (
		dealer *entity.Dealer
		err    error
	)
	if currentRole(c) == entity.RoleAdmin && c.Query("dealer_id") != "" {
		dealerID, parseErr := strconv.ParseUint(c.Query("dealer_id"), 10, 32)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dealer_id", "error_type": "validation_error"})
			return nil, time.Time{}, time.Time{}, false
		}
		dealer, err = h.dealerService.GetByID(uint(dealerID))
	} else {
		dealer, err = h.dealerService.GetByOwner(currentUserID(c))
	}
	if err != nil {
		respondError(c, err)
		return nil, time.Time{}, time.Time{}, false
	}

	now := time.Now()
	from := now.AddDate(-1, 0, 0)
	to := now
	if s := c.Query("from"); s != "" {
		from, err = time.Parse("2006-01", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from, expected YYYY-MM", "error_type": "validation_error"})
			return nil, time.Time{}, time.Time{}, false
		}
	}
	if s := c.Query("to"); s != "" {
		to, err = time.Parse("2006-01", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to, expected YYYY-MM", "error_type": "validation_error"})
			return nil, time.Time{}, time.Time{}, false
		}
		// Конец месяца включительно
		to = to.AddDate(0, 1, 0)
	}
	if !from.Before(to) {
		respondError(c, fmt.Errorf("%w: from must be before to", apperrors.ErrValidation))
		return nil, time.Time{}, time.Time{}, false
	}
	return dealer, from, to, true
}
