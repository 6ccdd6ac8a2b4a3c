package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий refresh-сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create создает новую сессию и возвращает ее ID
func (r *SessionRepo) Create(session *entity.Session) (uint, error) {
	if err := r.db.Create(session).Error; err != nil {
		return 0, err
	}
	return session.ID, nil
}

// GetByTokenHash находит сессию по хешу refresh-токена
func (r *SessionRepo) GetByTokenHash(tokenHash string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.Where("token_hash = ?", tokenHash).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByID находит сессию по ID
func (r *SessionRepo) GetByID(id uint) (*entity.Session, error) {
	var session entity.Session
	err := r.db.First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Revoke помечает сессию отозванной
func (r *SessionRepo) Revoke(id uint, reason string) error {
	return r.db.Model(&entity.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		}).Error
}

// RevokeAllForUser отзывает все действующие сессии пользователя
func (r *SessionRepo) RevokeAllForUser(userID uint, reason string) error {
	return r.db.Model(&entity.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		}).Error
}

// GetActiveForUser возвращает действующие сессии пользователя
func (r *SessionRepo) GetActiveForUser(userID uint) ([]*entity.Session, error) {
	var sessions []*entity.Session
	err := r.db.
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// CleanupExpired удаляет просроченные и отозванные сессии
func (r *SessionRepo) CleanupExpired() (int64, error) {
	result := r.db.
		Where("expires_at < ? OR revoked_at IS NOT NULL", time.Now()).
		Delete(&entity.Session{})
	return result.RowsAffected, result.Error
}
