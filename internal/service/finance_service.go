package service

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// FinanceService управляет квитанциями и финансовой отчетностью дилеров
type FinanceService struct {
	receiptRepo repository.ReceiptRepository
	dealerRepo  repository.DealerRepository
}

// NewFinanceService создает новый финансовый сервис
func NewFinanceService(receiptRepo repository.ReceiptRepository, dealerRepo repository.DealerRepository) *FinanceService {
	return &FinanceService{
		receiptRepo: receiptRepo,
		dealerRepo:  dealerRepo,
	}
}

// NewReceiptNumber генерирует номер квитанции: RCP-YYYYMM-XXXXXXXX
func NewReceiptNumber(issuedAt time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("RCP-%s-%s", issuedAt.Format("200601"), suffix)
}

// ReceiptInput — данные для выписки квитанции
type ReceiptInput struct {
	DealerID    uint
	ListingID   *uint
	Amount      int64
	Description string
	IssuedAt    time.Time
}

// IssueReceipt выписывает квитанцию дилеру
func (s *FinanceService) IssueReceipt(input ReceiptInput) (*entity.Receipt, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if _, err := s.dealerRepo.GetByID(input.DealerID); err != nil {
		return nil, err
	}

	issuedAt := input.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	receipt := &entity.Receipt{
		DealerID:    input.DealerID,
		ListingID:   input.ListingID,
		Number:      NewReceiptNumber(issuedAt),
		Amount:      input.Amount,
		Description: input.Description,
		Status:      entity.ReceiptStatusPaid,
		IssuedAt:    issuedAt,
	}
	if err := s.receiptRepo.Create(receipt); err != nil {
		return nil, err
	}

	log.Printf("[FinanceService] Выписана квитанция %s дилеру %d на Rp%d", receipt.Number, receipt.DealerID, receipt.Amount)
	return receipt, nil
}

// VoidReceipt аннулирует квитанцию. Аннулированная квитанция остается
// в отчетах со статусом void.
func (s *FinanceService) VoidReceipt(receiptID uint) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.Status == entity.ReceiptStatusVoid {
		return receipt, nil
	}
	if err := s.receiptRepo.UpdateStatus(receiptID, entity.ReceiptStatusVoid); err != nil {
		return nil, err
	}
	receipt.Status = entity.ReceiptStatusVoid
	return receipt, nil
}

// ListReceipts возвращает квитанции дилера за период
func (s *FinanceService) ListReceipts(dealerID uint, from, to time.Time, limit, offset int) ([]entity.Receipt, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if to.IsZero() {
		to = time.Now()
	}
	return s.receiptRepo.ListByDealer(dealerID, from, to, limit, offset)
}

// MonthlyReport агрегирует квитанции дилера по месяцам за полуинтервал [from, to)
func (s *FinanceService) MonthlyReport(dealerID uint, from, to time.Time) ([]repository.MonthlyReceiptSummary, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", apperrors.ErrValidation)
	}
	return s.receiptRepo.SummarizeByMonth(dealerID, from, to)
}

// ExportMonthlyReport выгружает помесячный отчет дилера в Excel.
// Возвращает содержимое xlsx-файла.
func (s *FinanceService) ExportMonthlyReport(dealerID uint, from, to time.Time) (*bytes.Buffer, string, error) {
	dealer, err := s.dealerRepo.GetByID(dealerID)
	if err != nil {
		return nil, "", err
	}
	summaries, err := s.MonthlyReport(dealerID, from, to)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Monthly Report"
	f.SetSheetName("Sheet1", sheet)

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, "", err
	}

	headers := []interface{}{"Year", "Month", "Status", "Receipts", "Total (Rp)"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[FinanceService] Ошибка записи заголовков: %v", err)
	}

	for i, summary := range summaries {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{summary.Year, summary.Month, summary.Status, summary.Count, summary.TotalAmount}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[FinanceService] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("finance-%s-%s-%s.xlsx", dealer.Slug, from.Format("200601"), to.Format("200601"))
	return buf, filename, nil
}
