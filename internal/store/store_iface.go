package store

import (
	"context"

	"github.com/starford/arbor/internal/models"
)

// ArticleStore is the persistence surface the article service depends on.
// Consumers should depend on this interface rather than *Articles.
type ArticleStore interface {
	// All returns every article ordered by creation time, oldest first.
	All(ctx context.Context) ([]models.Article, error)
	// Get returns the article with id or apperr.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Article, error)
	// FindBySlug returns the article using slug, ignoring excludeID when
	// non-empty, or apperr.ErrNotFound.
	FindBySlug(ctx context.Context, slug, excludeID string) (*models.Article, error)
	// Children returns the direct children of parentID, oldest first.
	Children(ctx context.Context, parentID string) ([]models.Article, error)
	// Search matches title or parent title, newest first.
	Search(ctx context.Context, query string, limit int) ([]models.Article, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, a *models.Article) error
	Update(ctx context.Context, a *models.Article) error
	Delete(ctx context.Context, id string) error
}

// Store hands out article queries and transactions.
type Store interface {
	Articles() ArticleStore
	InTx(ctx context.Context, fn func(ctx context.Context, tx ArticleStore) error) error
	Ping(ctx context.Context) error
}

var (
	_ ArticleStore = (*Articles)(nil)
	_ Store        = (*DB)(nil)
)
