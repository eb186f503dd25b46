package comments

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"squeakyknees/internal/models"
)

const deleteSubtreeSQL = `
WITH RECURSIVE subtree AS (
	SELECT id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id FROM comments c JOIN subtree s ON c.parent_id = s.id
)
DELETE FROM comments WHERE id IN (SELECT id FROM subtree)`

type GormRepository struct {
	db *gorm.DB
	// inTx makes Find take a key share lock so a parent cannot vanish before
	// the reply referencing it commits.
	inTx bool
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Find(ctx context.Context, id int64) (*models.Comment, error) {
	return r.find(ctx, id, "KEY SHARE")
}

// FindForUpdate locks the row exclusively, so concurrent status changes
// queue behind each other instead of deadlocking on upgraded share locks.
func (r *GormRepository) FindForUpdate(ctx context.Context, id int64) (*models.Comment, error) {
	return r.find(ctx, id, "UPDATE")
}

func (r *GormRepository) find(ctx context.Context, id int64, strength string) (*models.Comment, error) {
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = q.Clauses(clause.Locking{Strength: strength})
	}

	var c models.Comment
	if err := q.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) Insert(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *GormRepository) DeleteSubtree(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(deleteSubtreeSQL, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *GormRepository) ListByPage(ctx context.Context, pageID int64) ([]*models.Comment, error) {
	var out []*models.Comment
	err := r.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id int64, from, to models.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Tell "not there" apart from "not in state from".
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *GormRepository) ListByStatus(ctx context.Context, status models.Status, limit int) ([]*models.Comment, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []*models.Comment
	err := q.Find(&out).Error
	return out, err
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx, inTx: true})
	})
}
