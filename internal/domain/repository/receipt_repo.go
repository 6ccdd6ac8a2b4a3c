package repository

import (
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
)

// MonthlyReceiptSummary — агрегат по квитанциям дилера за месяц
type MonthlyReceiptSummary struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	TotalAmount int64  `json:"total_amount"`
}

// ReceiptRepository определяет методы для финансового модуля дилеров
type ReceiptRepository interface {
	Create(receipt *entity.Receipt) error
	GetByID(id uint) (*entity.Receipt, error)
	GetByNumber(number string) (*entity.Receipt, error)

	// UpdateStatus переводит квитанцию в новый статус (paid -> void)
	UpdateStatus(receiptID uint, status string) error

	ListByDealer(dealerID uint, from, to time.Time, limit, offset int) ([]entity.Receipt, int64, error)

	// SummarizeByMonth агрегирует квитанции дилера по месяцам и статусам
	// за полуинтервал [from, to)
	SummarizeByMonth(dealerID uint, from, to time.Time) ([]MonthlyReceiptSummary, error)
}
