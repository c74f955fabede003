package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/starford/arbor/internal/apperr"
	"github.com/starford/arbor/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Articles implements ArticleStore on any bun.IDB (pool or transaction).
type Articles struct {
	db bun.IDB
}

// All returns every article, oldest first.
func (q *Articles) All(ctx context.Context) ([]models.Article, error) {
	out := make([]models.Article, 0)
	err := q.db.NewSelect().
		Model(&out).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: all articles: %w", err)
	}
	return out, nil
}

// Get returns one article by id.
func (q *Articles) Get(ctx context.Context, id string) (*models.Article, error) {
	a := new(models.Article)
	err := q.db.NewSelect().
		Model(a).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "get article")
	}
	return a, nil
}

// FindBySlug returns the article holding slug, skipping excludeID.
func (q *Articles) FindBySlug(ctx context.Context, slug, excludeID string) (*models.Article, error) {
	a := new(models.Article)
	sel := q.db.NewSelect().
		Model(a).
		Where("?TableAlias.slug = ?", slug)
	if excludeID != "" {
		sel = sel.Where("?TableAlias.id != ?", excludeID)
	}
	if err := sel.Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "find by slug")
	}
	return a, nil
}

// Children returns direct children of parentID, oldest first.
func (q *Articles) Children(ctx context.Context, parentID string) ([]models.Article, error) {
	out := make([]models.Article, 0)
	err := q.db.NewSelect().
		Model(&out).
		Where("?TableAlias.parent_id = ?", parentID).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: children: %w", err)
	}
	return out, nil
}

// Search performs a case-insensitive substring match on the article title
// and the title of its parent. LIKE wildcards in query match literally. A
// limit of zero or less returns every match.
func (q *Articles) Search(ctx context.Context, query string, limit int) ([]models.Article, error) {
	like := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	out := make([]models.Article, 0)
	sel := q.db.NewSelect().
		Model(&out).
		Join(`LEFT JOIN articles AS p ON p.id = a.parent_id`).
		Where(`LOWER(a.title) LIKE ? ESCAPE '\' OR LOWER(p.title) LIKE ? ESCAPE '\'`, like, like).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return out, nil
}

// Count returns the number of stored articles.
func (q *Articles) Count(ctx context.Context) (int, error) {
	n, err := q.db.NewSelect().Model((*models.Article)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Insert stores a new article.
func (q *Articles) Insert(ctx context.Context, a *models.Article) error {
	if _, err := q.db.NewInsert().Model(a).Exec(ctx); err != nil {
		return writeErr(err, "insert article")
	}
	return nil
}

// Update rewrites every mutable column of a.
func (q *Articles) Update(ctx context.Context, a *models.Article) error {
	res, err := q.db.NewUpdate().
		Model(a).
		Column("title", "slug", "content", "parent_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return writeErr(err, "update article")
	}
	return affected(res, "update article")
}

// Delete removes one article. Existing children make the foreign key
// reject the delete.
func (q *Articles) Delete(ctx context.Context, id string) error {
	res, err := q.db.NewDelete().
		Model((*models.Article)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.ErrHasChildren
		}
		return fmt.Errorf("store: delete article: %w", err)
	}
	return affected(res, "delete article")
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

func writeErr(err error, op string) error {
	switch {
	case isUniqueViolation(err):
		return apperr.ErrDuplicateSlug
	case isForeignKeyViolation(err):
		return apperr.ErrParentNotFound
	default:
		return fmt.Errorf("store: %s: %w", op, err)
	}
}

func affected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s: rows affected: %w", op, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
