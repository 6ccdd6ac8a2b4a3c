package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Event — уведомление, доставляемое подключенным клиентам
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub раздает уведомления о новых сообщениях подключенным пользователям.
// Один пользователь может держать несколько соединений (вкладки, устройства).
type Hub struct {
	// Зарегистрированные клиенты по ID пользователя
	clients map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub создает новый hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run обрабатывает регистрацию и отключение клиентов. Запускается
// одной горутиной при старте сервера.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			log.Printf("[WebSocket] Клиент подключен: user_id=%d conn=%s", client.UserID, client.ConnectionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("[WebSocket] Клиент отключен: user_id=%d conn=%s", client.UserID, client.ConnectionID)
		}
	}
}

// Register регистрирует клиента в hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// SendToUser доставляет событие во все соединения пользователя.
// Переполненные буферы пропускаются, событие при этом теряется.
func (h *Hub) SendToUser(userID uint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WebSocket] Ошибка сериализации события %q: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			log.Printf("[WebSocket] Буфер переполнен, событие пропущено: user_id=%d conn=%s", userID, client.ConnectionID)
		}
	}
}

// ConnectedUsers возвращает количество пользователей с активными соединениями
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
