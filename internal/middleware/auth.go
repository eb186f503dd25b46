package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"squeakyknees/internal/models"
)

const (
	CheckUserKey   = "user"
	UnreadCountKey = "unread_count"
	SessionUserKey = "user_id"
)

// UserLookup resolves the user id stored in the session.
type UserLookup interface {
	User(ctx context.Context, id int64) (*models.User, error)
}

// UnreadCounter is optional; when set LoadUser also loads the unread
// notification count.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

// LoadUser retrieves user from session and sets to context
func LoadUser(users UserLookup, unread UnreadCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := sessionUserID(session.Get(SessionUserKey))

		if ok {
			ctx := c.Request.Context()
			user, err := users.User(ctx, userID)
			if err == nil {
				c.Set(CheckUserKey, user)

				if unread != nil {
					if count, err := unread.UnreadCount(ctx, user.ID); err == nil {
						c.Set(UnreadCountKey, count)
					}
				}
			} else {
				slog.DebugContext(ctx, "session user not found", "user_id", userID, "error", err)
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// StaffRequired ensures the user is staff. It is the first line of defence;
// the moderation workflow checks again.
func StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !user.IsStaff() {
			slog.WarnContext(c.Request.Context(), "staff route requested by non-staff user",
				"security", true, "user_id", user.ID, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CurrentViewer is the principal the comment core sees for this request.
func CurrentViewer(c *gin.Context) models.Viewer {
	return CurrentUser(c).Viewer()
}

// LogIn stores userID in the session.
func LogIn(c *gin.Context, userID int64) error {
	session := sessions.Default(c)
	session.Set(SessionUserKey, userID)
	return session.Save()
}

func sessionUserID(v any) (int64, bool) {
	switch id := v.(type) {
	case int64:
		return id, id != 0
	case int:
		return int64(id), id != 0
	case uint:
		return int64(id), id != 0
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		return n, err == nil && n != 0
	}
	return 0, false
}
