package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService предоставляет методы для работы с JWT и refresh-токенами
type JWTService struct {
	secretKey     string
	expirationHrs int
	refreshTTL    time.Duration

	// Черный список для инвалидированных пользователей (in-memory).
	// Токены, выданные до момента инвалидации, отклоняются при проверке.
	invalidatedUsers map[uint]time.Time
	mu               sync.RWMutex
}

// NewJWTService создает новый сервис JWT
func NewJWTService(secretKey string, expirationHrs int, refreshTTL time.Duration) (*JWTService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("JWT secret key is required")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &JWTService{
		secretKey:        secretKey,
		expirationHrs:    expirationHrs,
		refreshTTL:       refreshTTL,
		invalidatedUsers: make(map[uint]time.Time),
	}, nil
}

// GenerateToken создает новый access-токен с ролью пользователя в claims
func (s *JWTService) GenerateToken(userID uint, email string, role string) (string, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expirationHrs) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		log.Printf("[JWTService] Ошибка подписи токена для user_id=%d: %v", userID, err)
		return "", err
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает claims
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	// Токены, выданные до инвалидации пользователя, отклоняются
	s.mu.RLock()
	invalidatedAt, found := s.invalidatedUsers[claims.UserID]
	s.mu.RUnlock()
	if found && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(invalidatedAt) {
		return nil, errors.New("token has been invalidated")
	}

	return claims, nil
}

// InvalidateTokensForUser помечает все ранее выданные токены пользователя
// недействительными (например, после смены пароля)
func (s *JWTService) InvalidateTokensForUser(userID uint) {
	s.mu.Lock()
	s.invalidatedUsers[userID] = time.Now()
	s.mu.Unlock()
	log.Printf("[JWTService] Токены пользователя %d инвалидированы", userID)
}

// RefreshTokenTTL возвращает срок жизни refresh-токена
func (s *JWTService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

// GenerateRefreshToken создает криптостойкий refresh-токен (64 hex-символа)
func GenerateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashRefreshToken возвращает SHA-256 хеш токена; в БД хранится только хеш
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
