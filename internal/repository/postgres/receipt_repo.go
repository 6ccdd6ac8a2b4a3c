package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// ReceiptRepo реализует repository.ReceiptRepository
type ReceiptRepo struct {
	db *gorm.DB
}

// NewReceiptRepo создает новый репозиторий квитанций
func NewReceiptRepo(db *gorm.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// Create создает новую квитанцию
func (r *ReceiptRepo) Create(receipt *entity.Receipt) error {
	return r.db.Create(receipt).Error
}

// GetByID возвращает квитанцию по ID
func (r *ReceiptRepo) GetByID(id uint) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.First(&receipt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// GetByNumber возвращает квитанцию по уникальному номеру
func (r *ReceiptRepo) GetByNumber(number string) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.Where("number = ?", number).First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// UpdateStatus переводит квитанцию в новый статус
func (r *ReceiptRepo) UpdateStatus(receiptID uint, status string) error {
	result := r.db.Model(&entity.Receipt{}).
		Where("id = ?", receiptID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListByDealer возвращает квитанции дилера за период [from, to)
func (r *ReceiptRepo) ListByDealer(dealerID uint, from, to time.Time, limit, offset int) ([]entity.Receipt, int64, error) {
	query := r.db.Model(&entity.Receipt{}).
		Where("dealer_id = ? AND issued_at >= ? AND issued_at < ?", dealerID, from, to)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var receipts []entity.Receipt
	err := query.Order("issued_at DESC").Limit(limit).Offset(offset).Find(&receipts).Error
	if err != nil {
		return nil, 0, err
	}
	return receipts, total, nil
}

// SummarizeByMonth агрегирует квитанции дилера по месяцам и статусам
func (r *ReceiptRepo) SummarizeByMonth(dealerID uint, from, to time.Time) ([]repository.MonthlyReceiptSummary, error) {
	var rows []repository.MonthlyReceiptSummary
	err := r.db.Model(&entity.Receipt{}).
		Select(`EXTRACT(YEAR FROM issued_at)::int AS year,
		        EXTRACT(MONTH FROM issued_at)::int AS month,
		        status,
		        COUNT(*) AS count,
		        COALESCE(SUM(amount), 0) AS total_amount`).
		Where("dealer_id = ? AND issued_at >= ? AND issued_at < ?", dealerID, from, to).
		Group("year, month, status").
		Order("year, month, status").
		Scan(&rows).Error
	return rows, err
}
