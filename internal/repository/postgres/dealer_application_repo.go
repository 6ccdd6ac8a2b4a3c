package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// DealerApplicationRepo реализует repository.DealerApplicationRepository
type DealerApplicationRepo struct {
	db *gorm.DB
}

// NewDealerApplicationRepo создает новый репозиторий заявок дилеров
func NewDealerApplicationRepo(db *gorm.DB) *DealerApplicationRepo {
	return &DealerApplicationRepo{db: db}
}

// Create создает новую заявку
func (r *DealerApplicationRepo) Create(app *entity.DealerApplication) error {
	return r.db.Create(app).Error
}

// GetByID возвращает заявку по ID
func (r *DealerApplicationRepo) GetByID(id uint) (*entity.DealerApplication, error) {
	var app entity.DealerApplication
	err := r.db.First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

// GetActiveByPhone возвращает последнюю живую неподтвержденную заявку
// для данного телефона
func (r *DealerApplicationRepo) GetActiveByPhone(phone string, now time.Time) (*entity.DealerApplication, error) {
	var app entity.DealerApplication
	err := r.db.
		Where("phone = ? AND verified = false AND expires_at > ?", phone, now).
		Order("created_at DESC").
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

// ClaimOTP атомарно записывает новый код (см. UserRepo.ClaimOTP)
func (r *DealerApplicationRepo) ClaimOTP(appID uint, code string, expiresAt, threshold time.Time) (bool, error) {
	result := r.db.Exec(
		`UPDATE dealer_applications
		    SET otp_code = ?, otp_expires_at = ?, otp_attempts = 0, updated_at = ?
		  WHERE id = ? AND (otp_expires_at IS NULL OR otp_expires_at <= ?)`,
		code, expiresAt, time.Now(), appID, threshold,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementOTPAttempts атомарно увеличивает счетчик неудачных попыток
func (r *DealerApplicationRepo) IncrementOTPAttempts(appID uint) error {
	return r.db.Model(&entity.DealerApplication{}).
		Where("id = ?", appID).
		UpdateColumn("otp_attempts", gorm.Expr("COALESCE(otp_attempts, 0) + 1")).
		Error
}

// ClearOTP сбрасывает OTP-состояние заявки
func (r *DealerApplicationRepo) ClearOTP(appID uint, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"otp_code":       nil,
		"otp_expires_at": nil,
		"otp_attempts":   0,
		"updated_at":     time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	return r.db.Model(&entity.DealerApplication{}).Where("id = ?", appID).Updates(updates).Error
}

// MarkVerified помечает заявку подтвержденной; запись не удаляется
func (r *DealerApplicationRepo) MarkVerified(appID uint) error {
	return r.db.Model(&entity.DealerApplication{}).
		Where("id = ?", appID).
		Update("verified", true).Error
}

// List возвращает заявки с пагинацией и общим количеством
func (r *DealerApplicationRepo) List(limit, offset int) ([]entity.DealerApplication, int64, error) {
	var apps []entity.DealerApplication
	var total int64

	if err := r.db.Model(&entity.DealerApplication{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&apps).Error
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}
