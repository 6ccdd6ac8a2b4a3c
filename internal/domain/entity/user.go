package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Роли пользователей
const (
	RoleUser   = "user"
	RoleDealer = "dealer"
	RoleAdmin  = "admin"
)

// User представляет пользователя маркетплейса (покупатель, продавец или админ)
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email    string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`

	// Канонический номер в формате "+62...". Уникальность телефона
	// обеспечивается на уровне БД, дубликаты недопустимы.
	Phone           string     `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	PhoneVerifiedAt *time.Time `gorm:"type:timestamp" json:"phone_verified_at,omitempty"`

	// Аккаунт активируется после подтверждения телефона при регистрации
	Active bool   `gorm:"not null;default:false" json:"active"`
	Role   string `gorm:"size:20;not null;default:'user'" json:"-"` // user, dealer или admin

	FirstName string `gorm:"size:100;not null;default:''" json:"first_name"`
	LastName  string `gorm:"size:100;not null;default:''" json:"last_name"`
	City      string `gorm:"size:100;not null;default:''" json:"city"`

	// Встроенное OTP-состояние. Инвариант: OTPCode != nil тогда и только
	// тогда, когда идет проверка; после успеха или истечения поля
	// сбрасываются в NULL, счетчик попыток — в 0.
	OTPCode      *string    `gorm:"size:6" json:"-"`
	OTPExpiresAt *time.Time `gorm:"type:timestamp" json:"-"`
	OTPAttempts  *int       `json:"-"` // NULL трактуется как 0 (legacy-строки)

	// Reset-токен второй ступени: выдается после успешного OTP при сбросе
	// пароля, живет 1 час, обнуляется при первом использовании.
	ResetToken       *string    `gorm:"size:64;index" json:"-"`
	ResetTokenExpiry *time.Time `gorm:"type:timestamp" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// OTPAttemptCount возвращает число неудачных попыток, трактуя NULL как 0
func (u *User) OTPAttemptCount() int {
	if u.OTPAttempts == nil {
		return 0
	}
	return *u.OTPAttempts
}

// HasPendingOTP возвращает true, если для пользователя идет проверка кода
func (u *User) HasPendingOTP() bool {
	return u.OTPCode != nil
}

// IsAdmin возвращает true для администраторов
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	// Хешируем пароль только если он:
	// 1. Не пустой
	// 2. Не является уже bcrypt-хешем (начинается с "$2a$", "$2b$" или "$2y$")
	if len(u.Password) > 0 && !strings.HasPrefix(u.Password, "$2a$") &&
		!strings.HasPrefix(u.Password, "$2b$") && !strings.HasPrefix(u.Password, "$2y$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] Ошибка при хешировании пароля для email=%s: %v", u.Email, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
