package websocket

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512

	// Размер буфера канала отправки сообщений клиенту
	clientBufferSize = 64
)

// Client является посредником между WebSocket соединением и hub.
// Клиенты только получают уведомления; входящие сообщения, кроме
// ping/pong, игнорируются.
type Client struct {
	// ID пользователя
	UserID uint

	// Уникальный ID для каждого соединения
	ConnectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte
}

// NewClient создает нового клиента
func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID:       userID,
		ConnectionID: uuid.New().String(),
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, clientBufferSize),
	}
}

// readPump держит соединение открытым и обрабатывает pong-ответы.
// Содержимое входящих сообщений не используется.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		log.Printf("[WebSocket] Read pump остановлен для user_id=%d conn=%s", c.UserID, c.ConnectionID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Ошибка чтения (user_id=%d conn=%s): %v", c.UserID, c.ConnectionID, err)
			}
			break
		}
	}
}

// writePump отправляет клиенту уведомления из канала send и пингует
// соединение с периодом pingPeriod
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Run запускает обе помпы клиента
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}
