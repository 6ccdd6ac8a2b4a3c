package entity

import "time"

// DealerApplication is a provisional identity used before a dealer account
// exists. It carries its own OTP state plus an overall expiry for the whole
// application. A verified application is never deleted so a replayed
// verify request cannot materialize a second dealer.
type DealerApplication struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CompanyName string `gorm:"size:150;not null" json:"company_name"`
	Slug        string `gorm:"size:150;not null;index" json:"slug"`
	Phone       string `gorm:"size:20;not null;index" json:"phone"`
	Email       string `gorm:"size:100;not null" json:"email"`
	City        string `gorm:"size:100;not null;default:''" json:"city"`
	Address     string `gorm:"size:255;not null;default:''" json:"address"`

	OTPCode      *string    `gorm:"size:6" json:"-"`
	OTPExpiresAt *time.Time `gorm:"type:timestamp" json:"-"`
	OTPAttempts  *int       `json:"-"` // NULL is treated as 0

	// ExpiresAt bounds the whole application, not a single code.
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DealerApplication) TableName() string {
	return "dealer_applications"
}

func (a *DealerApplication) OTPAttemptCount() int {
	if a.OTPAttempts == nil {
		return 0
	}
	return *a.OTPAttempts
}

func (a *DealerApplication) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
