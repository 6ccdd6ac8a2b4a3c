package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/service"
)

// MessageHandler обрабатывает запросы чата между покупателем и продавцом
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler создает новый обработчик сообщений
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// StartConversationRequest — запрос на открытие диалога по объявлению
type StartConversationRequest struct {
	ListingID uint `json:"listing_id" binding:"required"`
}

// SendMessageRequest — запрос на отправку сообщения
type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}

// StartConversation открывает (или возвращает существующий) диалог по объявлению
func (h *MessageHandler) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	conv, err := h.messageService.StartConversation(req.ListingID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// Send отправляет сообщение в диалог
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	msg, err := h.messageService.Send(c.GetUint("conversation_id"), currentUserID(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ListConversations возвращает диалоги текущего пользователя
func (h *MessageHandler) ListConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	conversations, err := h.messageService.ListConversations(currentUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// ListMessages возвращает сообщения диалога и помечает входящие прочитанными
func (h *MessageHandler) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.messageService.ListMessages(c.GetUint("conversation_id"), currentUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
