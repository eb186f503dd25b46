package models

import (
	"time"
)

// Page is the content page comments attach to. Pages are authored elsewhere;
// the comment core only needs identity, a title and the owner to notify.
type Page struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Title     string    `gorm:"not null" json:"title"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	OwnerID   *int64    `gorm:"index" json:"owner_id,omitempty,string"`
	Owner     *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Page) HasOwner() bool {
	return p != nil && p.OwnerID != nil
}
