package repository

import "github.com/yourusername/carmarket-api/internal/domain/entity"

// SessionRepository определяет методы для работы с refresh-сессиями
type SessionRepository interface {
	// Create создает новую сессию и возвращает ее ID
	Create(session *entity.Session) (uint, error)

	// GetByTokenHash находит сессию по SHA-256 хешу refresh-токена
	GetByTokenHash(tokenHash string) (*entity.Session, error)

	GetByID(id uint) (*entity.Session, error)

	// Revoke помечает сессию отозванной с указанием причины
	Revoke(id uint, reason string) error

	// RevokeAllForUser отзывает все сессии пользователя
	RevokeAllForUser(userID uint, reason string) error

	// GetActiveForUser возвращает все действующие сессии пользователя
	GetActiveForUser(userID uint) ([]*entity.Session, error)

	// CleanupExpired удаляет просроченные и отозванные сессии,
	// возвращает количество удаленных строк
	CleanupExpired() (int64, error)
}
