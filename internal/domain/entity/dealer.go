package entity

import "time"

// Dealer представляет верифицированного дилера, материализованного
// из одобренной заявки (DealerApplication)
type Dealer struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OwnerUserID uint   `gorm:"not null;index" json:"owner_user_id"`
	CompanyName string `gorm:"size:150;not null" json:"company_name"`
	Slug        string `gorm:"size:150;not null;uniqueIndex" json:"slug"`
	Phone       string `gorm:"size:20;not null" json:"phone"`
	City        string `gorm:"size:100;not null;default:''" json:"city"`
	Address     string `gorm:"size:255;not null;default:''" json:"address"`
	About       string `gorm:"type:text;not null;default:''" json:"about"`
	Verified    bool   `gorm:"not null;default:false" json:"verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Dealer) TableName() string {
	return "dealers"
}
