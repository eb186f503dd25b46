// Package moderation drives the PENDING -> APPROVED | REJECTED state machine
// of comments. Only staff may move a comment, and nothing leaves a terminal
// state.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/logger"
	"squeakyknees/internal/models"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

var (
	ErrUnauthorized      = errors.New("moderation requires a staff principal")
	ErrInvalidTransition = errors.New("invalid moderation transition")
	ErrUnknownAction     = errors.New("unknown moderation action")
)

func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Target is the status the action moves a comment to.
func (a Action) Target() (models.Status, error) {
	switch a {
	case ActionApprove:
		return models.StatusApproved, nil
	case ActionReject:
		return models.StatusRejected, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
}

var transitions = map[models.Status][]models.Status{
	models.StatusPending: {models.StatusApproved, models.StatusRejected},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError is returned for a move the state machine does not allow.
// It matches ErrInvalidTransition.
type TransitionError struct {
	CommentID int64
	From      models.Status
	To        models.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("comment %d: cannot move from %s to %s", e.CommentID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// AlreadyInState is true when the comment already has the requested status,
// which callers wanting "ensure approved" can treat as success.
func (e *TransitionError) AlreadyInState() bool {
	return e.From == e.To
}

type Workflow struct {
	repo comments.Repository
}

func NewWorkflow(repo comments.Repository) *Workflow {
	return &Workflow{repo: repo}
}

func (w *Workflow) Approve(ctx context.Context, actor models.Viewer, id int64) (*models.Comment, error) {
	return w.Transition(ctx, actor, id, models.StatusApproved)
}

func (w *Workflow) Reject(ctx context.Context, actor models.Viewer, id int64) (*models.Comment, error) {
	return w.Transition(ctx, actor, id, models.StatusRejected)
}

func (w *Workflow) Apply(ctx context.Context, actor models.Viewer, id int64, action Action) (*models.Comment, error) {
	to, err := action.Target()
	if err != nil {
		return nil, err
	}
	return w.Transition(ctx, actor, id, to)
}

// Transition moves comment id to status `to` on behalf of actor.
func (w *Workflow) Transition(ctx context.Context, actor models.Viewer, id int64, to models.Status) (*models.Comment, error) {
	if err := w.authorize(ctx, actor, id); err != nil {
		return nil, err
	}

	var out *models.Comment
	err := w.repo.Transaction(ctx, func(repo comments.Repository) error {
		c, err := transition(ctx, repo, id, to)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(logger.WithComponent(ctx, "moderation"), "comment moderated",
		"comment_id", id, "status", to, "actor_id", actor.UserID)
	return out, nil
}

// Pending lists the moderation queue, newest first.
func (w *Workflow) Pending(ctx context.Context, actor models.Viewer, limit int) ([]*models.Comment, error) {
	if err := w.authorize(ctx, actor, 0); err != nil {
		return nil, err
	}
	return w.repo.ListByStatus(ctx, models.StatusPending, limit)
}

func (w *Workflow) authorize(ctx context.Context, actor models.Viewer, id int64) error {
	if actor.IsStaff {
		return nil
	}
	slog.WarnContext(logger.WithComponent(ctx, "moderation"), "moderation attempted by non-staff principal",
		"security", true, "actor_id", actor.UserID, "comment_id", id)
	return ErrUnauthorized
}

func transition(ctx context.Context, repo comments.Repository, id int64, to models.Status) (*models.Comment, error) {
	c, err := repo.FindForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, to) {
		return nil, &TransitionError{CommentID: id, From: c.Status, To: to}
	}

	ok, err := repo.UpdateStatus(ctx, id, c.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another moderator; report what it was moved to.
		cur, err := repo.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &TransitionError{CommentID: id, From: cur.Status, To: to}
	}

	c.Status = to
	return c, nil
}
