package entity

import "time"

// Статусы объявления
const (
	ListingStatusDraft     = "draft"
	ListingStatusPublished = "published"
	ListingStatusSold      = "sold"
)

// Состояние автомобиля
const (
	ConditionNew  = "new"
	ConditionUsed = "used"
)

// Listing представляет объявление о продаже автомобиля.
// Продавцом может быть как частное лицо (DealerID == nil), так и дилер.
type Listing struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	SellerID uint  `gorm:"not null;index" json:"seller_id"`
	DealerID *uint `gorm:"index" json:"dealer_id,omitempty"`

	Make      string `gorm:"size:50;not null;index:idx_listings_search" json:"make"`
	Model     string `gorm:"size:80;not null;index:idx_listings_search" json:"model"`
	Year      int    `gorm:"not null" json:"year"`
	Mileage   int64  `gorm:"not null;default:0" json:"mileage"`
	Price     int64  `gorm:"not null" json:"price"` // в рупиях, без копеек
	Condition string `gorm:"size:10;not null" json:"condition"`
	City      string `gorm:"size:100;not null;default:''" json:"city"`

	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	// Описание могло быть сгенерировано AI-ассистентом
	AIGenerated bool `gorm:"not null;default:false" json:"ai_generated"`

	Status string `gorm:"size:20;not null;default:'draft';index" json:"status"`

	PublishedAt *time.Time `gorm:"type:timestamp" json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Listing) TableName() string {
	return "listings"
}

// IsPublished возвращает true для опубликованных объявлений
func (l *Listing) IsPublished() bool {
	return l.Status == ListingStatusPublished
}
