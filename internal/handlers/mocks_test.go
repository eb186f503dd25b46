package handlers_test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/middleware"
	"squeakyknees/internal/models"
	"squeakyknees/internal/moderation"
	"squeakyknees/internal/ratelimit"
	"squeakyknees/internal/sanitize"
	"squeakyknees/internal/services"
)

var testUsers = map[int64]*models.User{
	1: {ID: 1, Username: "owner", Email: "owner@example.com"},
	2: {ID: 2, Username: "reader", Email: "reader@example.com"},
	3: {ID: 3, Username: "mod", Role: models.RoleStaff},
}

// asUser stands in for the session middleware: X-Test-User picks the user.
func asUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := strconv.ParseInt(c.GetHeader("X-Test-User"), 10, 64); err == nil {
			if u, ok := testUsers[id]; ok {
				c.Set(middleware.CheckUserKey, u)
			}
		}
		c.Next()
	}
}

type directory struct{}

func (directory) Page(_ context.Context, id int64) (*models.Page, error) {
	owner := int64(1)
	switch id {
	case 10:
		return &models.Page{ID: 10, Title: "Knee Day", Slug: "knee-day", OwnerID: &owner}, nil
	case 20:
		return &models.Page{ID: 20, Title: "Other", Slug: "other"}, nil
	}
	return nil, services.ErrPageNotFound
}

func (directory) User(_ context.Context, id int64) (*models.User, error) {
	if u, ok := testUsers[id]; ok {
		return u, nil
	}
	return nil, services.ErrUserNotFound
}

type countingNotifier struct {
	mu              sync.Mutex
	owner, approved int
}

func (n *countingNotifier) NotifyOwnerNewComment(context.Context, services.OwnerNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owner++
	return nil
}

func (n *countingNotifier) NotifyAuthorApproved(context.Context, services.ApprovalNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved++
	return nil
}

func newCommentService(notifier services.Notifier) *services.CommentService {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store, err := ratelimit.NewMemoryStore(128, ratelimit.WithMemoryClock(clock))
	if err != nil {
		panic(err)
	}
	repo := comments.NewMemoryRepository()
	return services.NewCommentService(
		ratelimit.NewLimiter(store, ratelimit.WithClock(clock)),
		sanitize.New(),
		comments.NewTree(repo, comments.WithClock(clock)),
		moderation.NewWorkflow(repo),
		directory{},
		notifier,
	)
}

type memInbox struct {
	mu    sync.Mutex
	items []models.Notification
}

func (m *memInbox) List(_ context.Context, userID int64, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memInbox) UnreadCount(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, it := range m.items {
		if it.UserID == userID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memInbox) MarkRead(_ context.Context, userID int64, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return services.ErrNotificationNotFound
}

func (m *memInbox) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].IsRead {
			m.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}
