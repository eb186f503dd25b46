package comments

import (
	"context"
	"errors"

	"squeakyknees/internal/models"
)

var (
	ErrNotFound        = errors.New("comment not found")
	ErrCrossPageParent = errors.New("parent comment belongs to a different page")
	ErrAnonymousAuthor = errors.New("comment author must be authenticated")
	ErrEmptyContent    = errors.New("comment content is empty")
	ErrCycle           = errors.New("comment parent chain is cyclic")
)

// Repository is the persistence the comment tree and moderation run on. It
// stores flat rows; nothing above it holds live parent pointers.
type Repository interface {
	// Find returns ErrNotFound when id does not exist.
	Find(ctx context.Context, id int64) (*models.Comment, error)
	// FindForUpdate is Find that, inside a transaction, holds the row for a
	// following write until commit.
	FindForUpdate(ctx context.Context, id int64) (*models.Comment, error)
	Insert(ctx context.Context, c *models.Comment) error
	// DeleteSubtree removes id and all of its descendants in one step and
	// reports how many rows went. ErrNotFound when id does not exist.
	DeleteSubtree(ctx context.Context, id int64) (int64, error)
	// ListByPage returns every comment on the page ordered by created_at, id.
	ListByPage(ctx context.Context, pageID int64) ([]*models.Comment, error)
	// UpdateStatus sets status to `to` only if it currently is `from`.
	UpdateStatus(ctx context.Context, id int64, from, to models.Status) (bool, error)
	// ListByStatus returns newest first; limit <= 0 means no limit.
	ListByStatus(ctx context.Context, status models.Status, limit int) ([]*models.Comment, error)
	// Transaction runs fn against a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(repo Repository) error) error
}
