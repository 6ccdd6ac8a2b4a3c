package repository

import (
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByUsername(username string) (*entity.User, error)

	// GetByPhone ищет пользователя по каноническому номеру телефона.
	// Уникальность телефона обеспечивается индексом, поэтому первый
	// найденный и есть единственный.
	GetByPhone(phone string) (*entity.User, error)

	Update(user *entity.User) error

	// UpdateProfile обновляет только указанные поля, не затрагивая пароль
	UpdateProfile(userID uint, updates map[string]interface{}) error

	// UpdatePassword безопасно обновляет пароль пользователя (хеширует сам)
	UpdatePassword(userID uint, newPassword string) error

	// ClaimOTP атомарно записывает новый код и срок действия, только если
	// предыдущий код отсутствует или его expires_at не позже threshold.
	// Для обычной отправки threshold = now (код должен истечь), для
	// повторной — now + TTL - 30s (код старше 30 секунд можно заменить).
	// Возвращает false, если живой код еще действует (cooldown) —
	// проверка и запись выполняются одним условным UPDATE.
	ClaimOTP(userID uint, code string, expiresAt, threshold time.Time) (bool, error)

	// IncrementOTPAttempts атомарно увеличивает счетчик неудачных попыток.
	// NULL в otp_attempts трактуется как 0.
	IncrementOTPAttempts(userID uint) error

	// ClearOTP сбрасывает код, срок и счетчик попыток; extra задает
	// дополнительные поля, выставляемые тем же UPDATE (например, флаг
	// верификации телефона).
	ClearOTP(userID uint, extra map[string]interface{}) error

	// SetResetToken сохраняет reset-токен второй ступени
	SetResetToken(userID uint, token string, expiry time.Time) error

	// GetByResetToken находит пользователя по действующему reset-токену
	GetByResetToken(token string) (*entity.User, error)

	// ClearResetToken обнуляет reset-токен (одноразовое использование)
	ClearResetToken(userID uint) error

	List(limit, offset int) ([]entity.User, error)
}
