package postgres

import (
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя
func (r *UserRepo) Create(user *entity.User) error {
	return r.db.Create(user).Error
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername возвращает пользователя по имени пользователя
func (r *UserRepo) GetByUsername(username string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByPhone возвращает пользователя по каноническому номеру телефона
func (r *UserRepo) GetByPhone(phone string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("phone = ?", phone).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update обновляет информацию о пользователе
func (r *UserRepo) Update(user *entity.User) error {
	return r.db.Save(user).Error
}

// UpdateProfile обновляет профиль пользователя без изменения пароля
func (r *UserRepo) UpdateProfile(userID uint, updates map[string]interface{}) error {
	// Пароль через этот метод менять нельзя
	delete(updates, "password")

	updates["updated_at"] = time.Now()

	return r.db.Model(&entity.User{}).Where("id = ?", userID).Updates(updates).Error
}

// UpdatePassword безопасно обновляет пароль пользователя.
// Хеширует пароль здесь и пишет прямым SQL, чтобы обойти хук BeforeSave
// и исключить двойное хеширование.
func (r *UserRepo) UpdatePassword(userID uint, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[UserRepo.UpdatePassword] Ошибка при хешировании пароля: %v", err)
		return err
	}

	result := r.db.Exec(
		"UPDATE users SET password = ?, updated_at = ? WHERE id = ?",
		string(hashedPassword),
		time.Now(),
		userID,
	)
	if result.Error != nil {
		log.Printf("[UserRepo.UpdatePassword] Ошибка при обновлении пароля для ID=%d: %v", userID, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	log.Printf("[UserRepo.UpdatePassword] Пароль успешно обновлён для пользователя ID=%d", userID)
	return nil
}

// ClaimOTP атомарно записывает новый код, только если предыдущий отсутствует
// или его expires_at не позже threshold. Проверка cooldown и запись
// выполняются одним условным UPDATE — гонка двух конкурентных send-запросов
// решается на уровне БД.
func (r *UserRepo) ClaimOTP(userID uint, code string, expiresAt, threshold time.Time) (bool, error) {
	result := r.db.Exec(
		`UPDATE users
		    SET otp_code = ?, otp_expires_at = ?, otp_attempts = 0, updated_at = ?
		  WHERE id = ? AND (otp_expires_at IS NULL OR otp_expires_at <= ?)`,
		code, expiresAt, time.Now(), userID, threshold,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementOTPAttempts атомарно увеличивает счетчик неудачных попыток.
// COALESCE покрывает legacy-строки, где otp_attempts равен NULL.
func (r *UserRepo) IncrementOTPAttempts(userID uint) error {
	return r.db.Model(&entity.User{}).
		Where("id = ?", userID).
		UpdateColumn("otp_attempts", gorm.Expr("COALESCE(otp_attempts, 0) + 1")).
		Error
}

// ClearOTP сбрасывает OTP-состояние; extra задает дополнительные поля,
// выставляемые тем же UPDATE (например phone_verified_at или active)
func (r *UserRepo) ClearOTP(userID uint, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"otp_code":       nil,
		"otp_expires_at": nil,
		"otp_attempts":   0,
		"updated_at":     time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	return r.db.Model(&entity.User{}).Where("id = ?", userID).Updates(updates).Error
}

// SetResetToken сохраняет reset-токен второй ступени
func (r *UserRepo) SetResetToken(userID uint, token string, expiry time.Time) error {
	return r.db.Model(&entity.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_token":        token,
		"reset_token_expiry": expiry,
		"updated_at":         time.Now(),
	}).Error
}

// GetByResetToken находит пользователя по действующему reset-токену
func (r *UserRepo) GetByResetToken(token string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("reset_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ClearResetToken обнуляет reset-токен после использования
func (r *UserRepo) ClearResetToken(userID uint) error {
	return r.db.Model(&entity.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_token":        nil,
		"reset_token_expiry": nil,
		"updated_at":         time.Now(),
	}).Error
}

// List возвращает список пользователей с пагинацией
func (r *UserRepo) List(limit, offset int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.Limit(limit).Offset(offset).Order("id").Find(&users).Error
	return users, err
}
