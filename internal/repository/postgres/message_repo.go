package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
)

// MessageRepo реализует repository.MessageRepository
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo создает новый репозиторий переписки
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// GetOrCreateConversation возвращает существующий диалог или создает новый.
// Пара (listing_id, buyer_id) уникальна, конфликт при гонке разрешается
// повторным чтением.
func (r *MessageRepo) GetOrCreateConversation(listingID, buyerID, sellerID uint) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = entity.Conversation{
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
	}
	if createErr := r.db.Create(&conv).Error; createErr != nil {
		// Конкурентное создание: перечитываем по уникальной паре
		var existing entity.Conversation
		if retryErr := r.db.Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).First(&existing).Error; retryErr == nil {
			return &existing, nil
		}
		return nil, createErr
	}
	return &conv, nil
}

// GetConversationByID возвращает диалог по ID
func (r *MessageRepo) GetConversationByID(id uint) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.First(&conv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// ListConversationsForUser возвращает диалоги, где пользователь участвует
// как покупатель или продавец
func (r *MessageRepo) ListConversationsForUser(userID uint, limit, offset int) ([]entity.Conversation, error) {
	var convs []entity.Conversation
	err := r.db.
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error
	return convs, err
}

// CreateMessage сохраняет сообщение и поднимает диалог наверх
func (r *MessageRepo) CreateMessage(msg *entity.ChatMessage) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now()).Error
	})
}

// ListMessages возвращает сообщения диалога от старых к новым
func (r *MessageRepo) ListMessages(conversationID uint, limit, offset int) ([]entity.ChatMessage, error) {
	var msgs []entity.ChatMessage
	err := r.db.
		Where("conversation_id = ?", conversationID).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	return msgs, err
}

// MarkRead помечает прочитанными все чужие сообщения диалога
func (r *MessageRepo) MarkRead(conversationID, readerID uint) error {
	return r.db.Model(&entity.ChatMessage{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		Update("read_at", time.Now()).Error
}
