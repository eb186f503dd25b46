package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"squeakyknees/internal/models"
	"squeakyknees/internal/utils"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrUserNotFound = errors.New("user not found")
)

// Directory resolves the pages and users comment notices refer to.
type Directory interface {
	Page(ctx context.Context, id int64) (*models.Page, error)
	User(ctx context.Context, id int64) (*models.User, error)
}

type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) Page(ctx context.Context, id int64) (*models.Page, error) {
	var page models.Page
	if err := d.db.WithContext(ctx).First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

func (d *GormDirectory) User(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CachedDirectory keeps recent page lookups in a TTL cache. Users are not
// cached: the session middleware authorizes staff from them on every request,
// so a role change must take effect immediately.
type CachedDirectory struct {
	next  Directory
	pages *utils.TTLCache[int64, *models.Page]
}

func NewCachedDirectory(next Directory, size int, ttl time.Duration) (*CachedDirectory, error) {
	pages, err := utils.NewTTLCache[int64, *models.Page](size, ttl)
	if err != nil {
		return nil, err
	}
	return &CachedDirectory{next: next, pages: pages}, nil
}

func (d *CachedDirectory) Page(ctx context.Context, id int64) (*models.Page, error) {
	if p, ok := d.pages.Get(id); ok {
		return p, nil
	}
	p, err := d.next.Page(ctx, id)
	if err != nil {
		return nil, err
	}
	d.pages.Set(id, p)
	return p, nil
}

func (d *CachedDirectory) User(ctx context.Context, id int64) (*models.User, error) {
	return d.next.User(ctx, id)
}
