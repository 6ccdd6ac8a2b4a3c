package repository

import "github.com/yourusername/carmarket-api/internal/domain/entity"

// MessageRepository определяет методы для переписки покупателей и продавцов
type MessageRepository interface {
	// GetOrCreateConversation возвращает существующий диалог по объявлению
	// и покупателю или создает новый
	GetOrCreateConversation(listingID, buyerID, sellerID uint) (*entity.Conversation, error)

	GetConversationByID(id uint) (*entity.Conversation, error)
	ListConversationsForUser(userID uint, limit, offset int) ([]entity.Conversation, error)

	CreateMessage(msg *entity.ChatMessage) error
	ListMessages(conversationID uint, limit, offset int) ([]entity.ChatMessage, error)

	// MarkRead помечает прочитанными все входящие сообщения диалога
	MarkRead(conversationID, readerID uint) error
}
