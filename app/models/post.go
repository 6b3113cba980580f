package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxPostLength = 5000

// Post is a community feed entry.
type Post struct {
	ID         string    `gorm:"primaryKey;type:char(36)" json:"id"`
	AuthorID   string    `gorm:"type:varchar(191);not null;index" json:"author_id"`
	AuthorName string    `gorm:"type:varchar(255);not null" json:"author_name" validate:"required,max=255"`
	Content    string    `gorm:"type:text;not null" json:"content" validate:"required,min=1,max=5000"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
