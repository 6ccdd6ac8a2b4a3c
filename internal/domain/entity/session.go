package entity

import "time"

// Session хранит refresh-сессию пользователя (в БД только SHA-256 хеш токена)
type Session struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	TokenHash string     `gorm:"column:token_hash;type:text;not null;uniqueIndex" json:"-"`
	DeviceID  string     `gorm:"size:255;not null;default:''" json:"device_id"`
	IPAddress string     `gorm:"size:50;not null;default:''" json:"ip_address"`
	UserAgent string     `gorm:"type:text;not null;default:''" json:"user_agent"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	Reason    string     `gorm:"size:255;not null;default:''" json:"reason,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

// NewSession создает сессию по заранее вычисленному хешу refresh-токена
func NewSession(userID uint, tokenHash, deviceID, ipAddress, userAgent string, expiresAt time.Time) *Session {
	return &Session{
		UserID:    userID,
		TokenHash: tokenHash,
		DeviceID:  deviceID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

// IsValid проверяет, что сессия не отозвана и не истекла
func (s *Session) IsValid() bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(time.Now())
}

// TableName определяет имя таблицы для GORM
func (Session) TableName() string {
	return "sessions"
}
