// Package comments holds the threaded comment tree: insertion with parent
// checks, visibility-filtered listing and cascading deletes.
package comments

import (
	"context"
	"fmt"
	"time"

	"squeakyknees/internal/idgen"
	"squeakyknees/internal/models"
)

// Node is a comment with its depth and visible replies, oldest first.
type Node struct {
	*models.Comment
	Depth   int     `json:"depth"`
	Replies []*Node `json:"replies"`
}

type Tree struct {
	repo Repository
	ids  idgen.Generator
	now  func() time.Time
}

type Option func(*Tree)

func WithClock(now func() time.Time) Option {
	return func(t *Tree) { t.now = now }
}

func WithIDGenerator(g idgen.Generator) Option {
	return func(t *Tree) { t.ids = g }
}

func NewTree(repo Repository, opts ...Option) *Tree {
	t := &Tree{repo: repo, ids: idgen.Default(), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Insert stores a new PENDING comment. The parent, when given, must exist and
// sit on the same page; the check and the insert share one transaction.
func (t *Tree) Insert(ctx context.Context, pageID, authorID int64, parentID *int64, content models.Content) (*models.Comment, error) {
	if authorID == 0 {
		return nil, ErrAnonymousAuthor
	}
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}

	c := &models.Comment{
		ID:        t.ids.Next(),
		PageID:    pageID,
		AuthorID:  authorID,
		Content:   content,
		Status:    models.StatusPending,
		CreatedAt: t.now().UTC(),
	}
	if parentID != nil {
		pid := *parentID
		c.ParentID = &pid
	}

	err := t.repo.Transaction(ctx, func(repo Repository) error {
		if c.ParentID != nil {
			parent, err := repo.Find(ctx, *c.ParentID)
			if err != nil {
				return err
			}
			if parent.PageID != pageID {
				return ErrCrossPageParent
			}
		}
		return repo.Insert(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (t *Tree) Get(ctx context.Context, id int64) (*models.Comment, error) {
	return t.repo.Find(ctx, id)
}

// ListForPage returns the forest of comments on pageID that viewer may see.
func (t *Tree) ListForPage(ctx context.Context, pageID int64, viewer models.Viewer) ([]*Node, error) {
	rows, err := t.repo.ListByPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list comments for page %d: %w", pageID, err)
	}
	return BuildForest(rows, viewer), nil
}

// Delete removes id and every descendant.
func (t *Tree) Delete(ctx context.Context, id int64) (int64, error) {
	return t.repo.DeleteSubtree(ctx, id)
}

// Depth walks the parent chain of id; top-level comments have depth 0.
func (t *Tree) Depth(ctx context.Context, id int64) (int, error) {
	seen := make(map[int64]struct{})
	depth := 0
	cur, err := t.repo.Find(ctx, id)
	if err != nil {
		return 0, err
	}
	for cur.ParentID != nil {
		if _, ok := seen[cur.ID]; ok {
			return 0, ErrCycle
		}
		seen[cur.ID] = struct{}{}

		cur, err = t.repo.Find(ctx, *cur.ParentID)
		if err != nil {
			return 0, err
		}
		depth++
	}
	return depth, nil
}

// BuildForest groups flat rows by parent id and filters by viewer. A comment
// the viewer cannot see hides its whole subtree, and rows whose parent is not
// among rows are dropped.
func BuildForest(rows []*models.Comment, viewer models.Viewer) []*Node {
	sorted := make([]*models.Comment, len(rows))
	copy(sorted, rows)
	sortOldestFirst(sorted)

	present := make(map[int64]struct{}, len(sorted))
	for _, c := range sorted {
		present[c.ID] = struct{}{}
	}

	var roots []*models.Comment
	children := make(map[int64][]*models.Comment)
	for _, c := range sorted {
		switch {
		case c.ParentID == nil:
			roots = append(roots, c)
		default:
			if _, ok := present[*c.ParentID]; ok {
				children[*c.ParentID] = append(children[*c.ParentID], c)
			}
		}
	}

	visited := make(map[int64]struct{}, len(sorted))
	var build func(c *models.Comment, depth int) *Node
	build = func(c *models.Comment, depth int) *Node {
		visited[c.ID] = struct{}{}
		n := &Node{Comment: c, Depth: depth, Replies: []*Node{}}
		for _, child := range children[c.ID] {
			if _, ok := visited[child.ID]; ok || !viewer.CanSee(child) {
				continue
			}
			n.Replies = append(n.Replies, build(child, depth+1))
		}
		return n
	}

	forest := make([]*Node, 0, len(roots))
	for _, c := range roots {
		if viewer.CanSee(c) {
			forest = append(forest, build(c, 0))
		}
	}
	return forest
}

// Walk visits nodes depth first, parents before replies.
func Walk(nodes []*Node, fn func(n *Node)) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Replies, fn)
	}
}
