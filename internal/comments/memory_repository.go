package comments

import (
	"context"
	"sort"
	"sync"

	"squeakyknees/internal/models"
)

type memoryData struct {
	mu   sync.RWMutex
	rows map[int64]*models.Comment
}

// MemoryRepository keeps comments in a flat map keyed by id. A transaction
// holds the write lock for its whole duration and rolls back on error.
type MemoryRepository struct {
	data *memoryData
	inTx bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: &memoryData{rows: make(map[int64]*models.Comment)}}
}

func (r *MemoryRepository) rlock() func() {
	if r.inTx {
		return func() {}
	}
	r.data.mu.RLock()
	return r.data.mu.RUnlock
}

func (r *MemoryRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.data.mu.Lock()
	return r.data.mu.Unlock
}

func (r *MemoryRepository) Find(_ context.Context, id int64) (*models.Comment, error) {
	defer r.rlock()()

	c, ok := r.data.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// FindForUpdate is Find; a transaction already holds the write lock.
func (r *MemoryRepository) FindForUpdate(ctx context.Context, id int64) (*models.Comment, error) {
	return r.Find(ctx, id)
}

func (r *MemoryRepository) Insert(_ context.Context, c *models.Comment) error {
	defer r.lock()()

	if c.ParentID != nil {
		if _, ok := r.data.rows[*c.ParentID]; !ok {
			return ErrNotFound
		}
	}
	r.data.rows[c.ID] = c.Clone()
	return nil
}

func (r *MemoryRepository) DeleteSubtree(_ context.Context, id int64) (int64, error) {
	defer r.lock()()

	if _, ok := r.data.rows[id]; !ok {
		return 0, ErrNotFound
	}

	children := make(map[int64][]int64)
	for _, c := range r.data.rows {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	var deleted int64
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := r.data.rows[cur]; !ok {
			continue
		}
		delete(r.data.rows, cur)
		deleted++
		queue = append(queue, children[cur]...)
	}
	return deleted, nil
}

func (r *MemoryRepository) ListByPage(_ context.Context, pageID int64) ([]*models.Comment, error) {
	defer r.rlock()()

	var out []*models.Comment
	for _, c := range r.data.rows {
		if c.PageID == pageID {
			out = append(out, c.Clone())
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id int64, from, to models.Status) (bool, error) {
	defer r.lock()()

	c, ok := r.data.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *MemoryRepository) ListByStatus(_ context.Context, status models.Status, limit int) ([]*models.Comment, error) {
	defer r.rlock()()

	var out []*models.Comment
	for _, c := range r.data.rows {
		if c.Status == status {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	r.data.mu.Lock()
	defer r.data.mu.Unlock()

	snapshot := make(map[int64]*models.Comment, len(r.data.rows))
	for id, c := range r.data.rows {
		snapshot[id] = c.Clone()
	}

	if err := fn(&MemoryRepository{data: r.data, inTx: true}); err != nil {
		r.data.rows = snapshot
		return err
	}
	return nil
}

// Len is the number of stored comments.
func (r *MemoryRepository) Len() int {
	defer r.rlock()()
	return len(r.data.rows)
}

func sortOldestFirst(cs []*models.Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}
