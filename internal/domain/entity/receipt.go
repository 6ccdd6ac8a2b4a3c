package entity

import "time"

// Статусы квитанции
const (
	ReceiptStatusPaid = "paid"
	ReceiptStatusVoid = "void"
)

// Receipt — финансовая квитанция дилера (продажа, комиссия площадки и т.п.)
type Receipt struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	DealerID  uint   `gorm:"not null;index" json:"dealer_id"`
	ListingID *uint  `gorm:"index" json:"listing_id,omitempty"`
	Number    string `gorm:"size:40;not null;uniqueIndex" json:"number"`
	// Сумма в рупиях
	Amount      int64     `gorm:"not null" json:"amount"`
	Description string    `gorm:"size:255;not null;default:''" json:"description"`
	Status      string    `gorm:"size:10;not null;default:'paid';index" json:"status"`
	IssuedAt    time.Time `gorm:"not null;index" json:"issued_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Receipt) TableName() string {
	return "receipts"
}
