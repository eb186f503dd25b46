package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"squeakyknees/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Inbox is the in-app notification store read by the notifications API.
type Inbox interface {
	List(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID int64, id uint) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// InboxNotifier writes notices as notification rows and serves them back
// through Inbox.
type InboxNotifier struct {
	db *gorm.DB
}

func NewInboxNotifier(db *gorm.DB) *InboxNotifier {
	return &InboxNotifier{db: db}
}

func (s *InboxNotifier) NotifyOwnerNewComment(ctx context.Context, n OwnerNotice) error {
	if n.Owner == nil || n.Comment == nil {
		return nil
	}
	// no notice for commenting on your own page
	if n.Author != nil && n.Author.ID == n.Owner.ID {
		return nil
	}

	pageID, commentID, actorID := n.Comment.PageID, n.Comment.ID, n.Comment.AuthorID
	return s.create(ctx, &models.Notification{
		UserID:    n.Owner.ID,
		ActorID:   &actorID,
		PageID:    &pageID,
		CommentID: &commentID,
		Type:      models.NotificationTypeCommentPage,
		Reason:    "New comment on: " + pageTitle(n.Page),
	})
}

func (s *InboxNotifier) NotifyAuthorApproved(ctx context.Context, n ApprovalNotice) error {
	if n.Comment == nil {
		return nil
	}

	pageID, commentID := n.Comment.PageID, n.Comment.ID
	return s.create(ctx, &models.Notification{
		UserID:    n.Comment.AuthorID,
		PageID:    &pageID,
		CommentID: &commentID,
		Type:      models.NotificationTypeCommentApproved,
		Reason:    fmt.Sprintf("Your comment on '%s' was approved", pageTitle(n.Page)),
	})
}

func (s *InboxNotifier) create(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification for user %d: %w", n.UserID, err)
	}
	return nil
}

func (s *InboxNotifier) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *InboxNotifier) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *InboxNotifier) MarkRead(ctx context.Context, userID int64, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *InboxNotifier) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func pageTitle(p *models.Page) string {
	if p == nil {
		return "a page"
	}
	return p.Title
}
