package models

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Comment is a flat row; the reply tree is rebuilt from ParentID at read time.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	PageID    int64     `gorm:"not null;index" json:"page_id,string"`
	AuthorID  int64     `gorm:"not null;index" json:"author_id,string"`
	ParentID  *int64    `gorm:"index" json:"parent_id,omitempty,string"`
	Parent    *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content   Content   `gorm:"type:jsonb;not null" json:"content"`
	Status    Status    `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	// Content is immutable after creation, so there is no UpdatedAt.
}

func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// Clone returns a copy that shares nothing mutable with c.
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Parent = nil
	if c.ParentID != nil {
		pid := *c.ParentID
		cp.ParentID = &pid
	}
	cp.Content = append(Content(nil), c.Content...)
	return &cp
}
