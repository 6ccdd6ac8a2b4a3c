package entity

import "time"

// Conversation связывает покупателя и продавца в рамках одного объявления
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"not null;index:idx_conversations_listing_buyer,unique" json:"listing_id"`
	BuyerID   uint      `gorm:"not null;index:idx_conversations_listing_buyer,unique" json:"buyer_id"`
	SellerID  uint      `gorm:"not null;index" json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Conversation) TableName() string {
	return "conversations"
}

// ChatMessage — одно сообщение в переписке покупателя и продавца
type ChatMessage struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID uint       `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint       `gorm:"not null" json:"sender_id"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	ReadAt         *time.Time `gorm:"type:timestamp" json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (ChatMessage) TableName() string {
	return "chat_messages"
}
