package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/carmarket-api/internal/middleware"
	"github.com/yourusername/carmarket-api/internal/websocket"
	"github.com/yourusername/carmarket-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения для уведомлений чата
type WSHandler struct {
	hub        *websocket.Hub
	jwtService *auth.JWTService
	upgrader   gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins должен совпадать со списком доменов в CORS-конфигурации.
func NewWSHandler(hub *websocket.Hub, jwtService *auth.JWTService, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtService: jwtService,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// Пустой Origin - не браузерный клиент (мобильное приложение, curl и т.д.)
				if origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}

				log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
				return false
			},
			EnableCompression: true,
		},
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Токен передается через query-параметр, т.к. браузерный WebSocket API
// не позволяет задавать заголовки.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		// Cookie-аутентификация работает и для WebSocket-рукопожатия
		token, _ = c.Cookie(middleware.AccessTokenCookie)
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication token", "error_type": "token_missing"})
		return
	}

	claims, err := h.jwtService.ParseToken(token)
	if err != nil {
		log.Printf("WebSocket: invalid or expired token: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket: error upgrading connection: %v", err)
		return
	}

	log.Printf("WebSocket: connection upgraded for UserID: %d", claims.UserID)

	client := websocket.NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)
	client.Run()
}
