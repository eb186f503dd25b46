package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/logger"
	"squeakyknees/internal/models"
	"squeakyknees/internal/moderation"
	"squeakyknees/internal/ratelimit"
	"squeakyknees/internal/sanitize"
)

var ErrRateLimited = errors.New("rate limited")

// RateLimitedError carries how long the subject has to wait. It matches
// ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

type SubmitInput struct {
	PageID   int64
	Author   models.Viewer
	ParentID *int64
	Blocks   []sanitize.RawBlock
	// ClientAddr keys the rate limit when Author is anonymous.
	ClientAddr string
}

// CommentService runs comment submission and moderation end to end.
type CommentService struct {
	limiter   *ratelimit.Limiter
	sanitizer *sanitize.Sanitizer
	tree      *comments.Tree
	workflow  *moderation.Workflow
	directory Directory
	notifier  Notifier
}

func NewCommentService(
	limiter *ratelimit.Limiter,
	sanitizer *sanitize.Sanitizer,
	tree *comments.Tree,
	workflow *moderation.Workflow,
	directory Directory,
	notifier Notifier,
) *CommentService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CommentService{
		limiter:   limiter,
		sanitizer: sanitizer,
		tree:      tree,
		workflow:  workflow,
		directory: directory,
		notifier:  notifier,
	}
}

// Submit records the attempt against the rate limit, sanitizes the blocks
// and stores a PENDING comment. The attempt counts even when a later step
// fails.
func (s *CommentService) Submit(ctx context.Context, in SubmitInput) (*models.Comment, error) {
	pageID := in.PageID
	f := logger.GetFields(ctx)
	f.Component = "comments"
	f.PageID = &pageID
	ctx = logger.WithFields(ctx, f)

	subject := ratelimit.SubjectFor(in.Author.UserID, in.ClientAddr)
	decision, err := s.limiter.Allow(ctx, subject, ratelimit.CommentAddPolicy)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		slog.InfoContext(ctx, "comment submission rate limited", "subject", subject.String())
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	content, err := s.sanitizer.Validate(in.Blocks)
	if err != nil {
		return nil, err
	}

	c, err := s.tree.Insert(ctx, in.PageID, in.Author.UserID, in.ParentID, content)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "comment submitted", "comment_id", c.ID, "author_id", c.AuthorID, "reply", c.IsReply())

	if !c.IsReply() {
		s.notifyOwner(ctx, c)
	}
	return c, nil
}

// Moderate applies action as actor; an approval notifies the author once.
func (s *CommentService) Moderate(ctx context.Context, id int64, action moderation.Action, actor models.Viewer) (*models.Comment, error) {
	c, err := s.workflow.Apply(ctx, actor, id, action)
	if err != nil {
		return nil, err
	}
	if c.Status == models.StatusApproved {
		s.notifyApproved(ctx, c)
	}
	return c, nil
}

// ModerateBulk applies action to ids in one transaction and notifies the
// author of every comment it approved.
func (s *CommentService) ModerateBulk(ctx context.Context, ids []int64, action moderation.Action, actor models.Viewer) (moderation.BulkResult, error) {
	res, err := s.workflow.Bulk(ctx, actor, ids, action)
	if err != nil {
		return res, err
	}
	for _, c := range res.Changed {
		if c.Status == models.StatusApproved {
			s.notifyApproved(ctx, c)
		}
	}
	return res, nil
}

func (s *CommentService) List(ctx context.Context, pageID int64, viewer models.Viewer) ([]*comments.Node, error) {
	return s.tree.ListForPage(ctx, pageID, viewer)
}

func (s *CommentService) Get(ctx context.Context, id int64, viewer models.Viewer) (*models.Comment, error) {
	c, err := s.tree.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanSee(c) {
		return nil, comments.ErrNotFound
	}
	return c, nil
}

// Delete removes a comment and its replies. Staff only.
func (s *CommentService) Delete(ctx context.Context, id int64, actor models.Viewer) (int64, error) {
	if !actor.IsStaff {
		slog.WarnContext(logger.WithComponent(ctx, "comments"), "comment delete attempted by non-staff principal",
			"security", true, "actor_id", actor.UserID, "comment_id", id)
		return 0, moderation.ErrUnauthorized
	}

	n, err := s.tree.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(logger.WithComponent(ctx, "comments"), "comment subtree deleted",
		"comment_id", id, "deleted", n, "actor_id", actor.UserID)
	return n, nil
}

func (s *CommentService) Queue(ctx context.Context, actor models.Viewer, limit int) ([]*models.Comment, error) {
	return s.workflow.Pending(ctx, actor, limit)
}

// RateLimitInfo reports what is left of the comment budget for a subject.
func (s *CommentService) RateLimitInfo(ctx context.Context, author models.Viewer, clientAddr string) (ratelimit.Info, error) {
	return s.limiter.Info(ctx, ratelimit.SubjectFor(author.UserID, clientAddr), ratelimit.CommentAddPolicy)
}

func (s *CommentService) notifyOwner(ctx context.Context, c *models.Comment) {
	if s.directory == nil {
		return
	}

	page, err := s.directory.Page(ctx, c.PageID)
	if err != nil {
		slog.WarnContext(ctx, "owner notification skipped: page lookup failed", "comment_id", c.ID, "error", err)
		return
	}
	if !page.HasOwner() {
		return
	}

	owner, err := s.directory.User(ctx, *page.OwnerID)
	if err != nil {
		slog.WarnContext(ctx, "owner notification skipped: owner lookup failed", "comment_id", c.ID, "error", err)
		return
	}
	author, err := s.directory.User(ctx, c.AuthorID)
	if err != nil {
		author = nil
	}

	err = s.notifier.NotifyOwnerNewComment(ctx, OwnerNotice{Page: page, Owner: owner, Author: author, Comment: c})
	if err != nil {
		slog.ErrorContext(ctx, "owner notification failed", "comment_id", c.ID, "error", err)
	}
}

func (s *CommentService) notifyApproved(ctx context.Context, c *models.Comment) {
	n := ApprovalNotice{Comment: c}
	if s.directory != nil {
		if page, err := s.directory.Page(ctx, c.PageID); err == nil {
			n.Page = page
		} else {
			slog.WarnContext(ctx, "page lookup failed for approval notice", "comment_id", c.ID, "error", err)
		}
		if author, err := s.directory.User(ctx, c.AuthorID); err == nil {
			n.Author = author
		} else {
			slog.WarnContext(ctx, "author lookup failed for approval notice", "comment_id", c.ID, "error", err)
		}
	}

	if err := s.notifier.NotifyAuthorApproved(ctx, n); err != nil {
		slog.ErrorContext(ctx, "approval notification failed", "comment_id", c.ID, "error", err)
	}
}
