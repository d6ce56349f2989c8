package models

import "time"

// Article is a public health article written by a medical staff member.
type Article struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	Author     User      `json:"-"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CoverImage string    `gorm:"size:512" json:"cover_image"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
