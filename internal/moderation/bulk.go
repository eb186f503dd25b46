package moderation

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/logger"
	"squeakyknees/internal/models"
)

type Skipped struct {
	CommentID int64
	Err       error
}

type BulkResult struct {
	Changed []*models.Comment
	Skipped []Skipped
}

// Bulk applies action to every id inside one transaction. Already-resolved
// and missing comments are skipped; any other failure rolls the batch back.
// Rows are visited in ascending id order so concurrent batches lock them in
// the same order.
func (w *Workflow) Bulk(ctx context.Context, actor models.Viewer, ids []int64, action Action) (BulkResult, error) {
	to, err := action.Target()
	if err != nil {
		return BulkResult{}, err
	}
	if err := w.authorize(ctx, actor, 0); err != nil {
		return BulkResult{}, err
	}

	ordered := slices.Compact(slices.Sorted(slices.Values(ids)))

	var res BulkResult
	err = w.repo.Transaction(ctx, func(repo comments.Repository) error {
		res = BulkResult{}
		for _, id := range ordered {
			c, err := transition(ctx, repo, id, to)
			switch {
			case err == nil:
				res.Changed = append(res.Changed, c)
			case errors.Is(err, ErrInvalidTransition), errors.Is(err, comments.ErrNotFound):
				res.Skipped = append(res.Skipped, Skipped{CommentID: id, Err: err})
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	slog.InfoContext(logger.WithComponent(ctx, "moderation"), "bulk moderation",
		"action", action, "changed", len(res.Changed), "skipped", len(res.Skipped), "actor_id", actor.UserID)
	return res, nil
}
