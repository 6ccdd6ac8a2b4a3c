package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/pkg/auth"
)

// AccessTokenCookie — имя HttpOnly куки с access-токеном
const AccessTokenCookie = "access_token"

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// extractToken достает access-токен из куки или заголовка Authorization
func extractToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth проверяет токен и кладет user_id, email и role в контекст
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			c.Abort()
			return
		}

		claims, err := m.jwtService.ParseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// AdminOnly пропускает только администраторов. Применяется после RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return requireRole(entity.RoleAdmin)
}

// DealerOnly пропускает дилеров и администраторов. Применяется после RequireAuth.
func (m *AuthMiddleware) DealerOnly() gin.HandlerFunc {
	return requireRole(entity.RoleDealer, entity.RoleAdmin)
}

func requireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			c.Abort()
			return
		}

		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "error_type": "forbidden"})
		c.Abort()
	}
}
