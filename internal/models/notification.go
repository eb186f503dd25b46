package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentPage     NotificationType = "comment_page"
	NotificationTypeCommentApproved NotificationType = "comment_approved"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    int64            `gorm:"not null;index" json:"user_id,string"` // Receiver
	ActorID   *int64           `gorm:"index" json:"actor_id,omitempty,string"`
	PageID    *int64           `gorm:"index" json:"page_id,omitempty,string"`
	CommentID *int64           `gorm:"index" json:"comment_id,omitempty,string"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Reason    string           `gorm:"type:text" json:"reason"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
