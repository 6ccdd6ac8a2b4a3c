package repository

import (
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
)

// DealerApplicationRepository определяет методы для работы с заявками дилеров
type DealerApplicationRepository interface {
	Create(app *entity.DealerApplication) error
	GetByID(id uint) (*entity.DealerApplication, error)

	// GetActiveByPhone возвращает последнюю неистекшую и неподтвержденную
	// заявку для данного телефона
	GetActiveByPhone(phone string, now time.Time) (*entity.DealerApplication, error)

	// ClaimOTP, IncrementOTPAttempts и ClearOTP повторяют контракт
	// UserRepository для записей заявок
	ClaimOTP(appID uint, code string, expiresAt, threshold time.Time) (bool, error)
	IncrementOTPAttempts(appID uint) error
	ClearOTP(appID uint, extra map[string]interface{}) error

	// MarkVerified помечает заявку подтвержденной. Заявка никогда не
	// удаляется — это защита от повторной материализации дилера.
	MarkVerified(appID uint) error

	List(limit, offset int) ([]entity.DealerApplication, int64, error)
}
