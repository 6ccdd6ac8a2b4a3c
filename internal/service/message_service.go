package service

import (
	"fmt"
	"strings"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
	"github.com/yourusername/carmarket-api/internal/websocket"
)

const maxMessageBodyLen = 2000

// Notifier доставляет событие пользователю по WebSocket
type Notifier interface {
	SendToUser(userID uint, event websocket.Event)
}

// MessageService управляет перепиской покупателей и продавцов
type MessageService struct {
	messageRepo repository.MessageRepository
	listingRepo repository.ListingRepository
	notifier    Notifier
}

// NewMessageService создает новый сервис сообщений
func NewMessageService(
	messageRepo repository.MessageRepository,
	listingRepo repository.ListingRepository,
	notifier Notifier,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		listingRepo: listingRepo,
		notifier:    notifier,
	}
}

// StartConversation открывает (или возвращает существующий) диалог
// покупателя с продавцом по объявлению
func (s *MessageService) StartConversation(listingID, buyerID uint) (*entity.Conversation, error) {
	listing, err := s.listingRepo.GetByID(listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsPublished() {
		return nil, apperrors.ErrNotFound
	}
	if listing.SellerID == buyerID {
		return nil, fmt.Errorf("%w: cannot message your own listing", apperrors.ErrValidation)
	}
	return s.messageRepo.GetOrCreateConversation(listingID, buyerID, listing.SellerID)
}

// Send отправляет сообщение в диалог. Отправителем может быть только
// участник диалога; второй участник получает WebSocket-уведомление.
func (s *MessageService) Send(conversationID, senderID uint, body string) (*entity.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is empty", apperrors.ErrValidation)
	}
	if len(body) > maxMessageBodyLen {
		return nil, fmt.Errorf("%w: message is too long", apperrors.ErrValidation)
	}

	conv, err := s.messageRepo.GetConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	recipientID, err := counterpart(conv, senderID)
	if err != nil {
		return nil, err
	}

	msg := &entity.ChatMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}
	if err := s.messageRepo.CreateMessage(msg); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.SendToUser(recipientID, websocket.Event{
			Type: "message:new",
			Data: msg,
		})
	}
	return msg, nil
}

// ListConversations возвращает диалоги пользователя
func (s *MessageService) ListConversations(userID uint, limit, offset int) ([]entity.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.messageRepo.ListConversationsForUser(userID, limit, offset)
}

// ListMessages возвращает сообщения диалога и помечает входящие
// прочитанными. Доступ только участникам.
func (s *MessageService) ListMessages(conversationID, readerID uint, limit, offset int) ([]entity.ChatMessage, error) {
	conv, err := s.messageRepo.GetConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := counterpart(conv, readerID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	messages, err := s.messageRepo.ListMessages(conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.messageRepo.MarkRead(conversationID, readerID); err != nil {
		return nil, err
	}
	return messages, nil
}

// counterpart возвращает второго участника диалога или Forbidden,
// если userID не участвует в нем
func counterpart(conv *entity.Conversation, userID uint) (uint, error) {
	switch userID {
	case conv.BuyerID:
		return conv.SellerID, nil
	case conv.SellerID:
		return conv.BuyerID, nil
	default:
		return 0, apperrors.ErrForbidden
	}
}
