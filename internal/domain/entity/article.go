package entity

import "time"

// Статусы статьи
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
)

// Article — редакционная статья; текст может быть сгенерирован AI-ассистентом
type Article struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Slug        string     `gorm:"size:200;not null;uniqueIndex" json:"slug"`
	Body        string     `gorm:"type:text;not null;default:''" json:"body"`
	AIGenerated bool       `gorm:"not null;default:false" json:"ai_generated"`
	Status      string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	PublishedAt *time.Time `gorm:"type:timestamp" json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Article) TableName() string {
	return "articles"
}
