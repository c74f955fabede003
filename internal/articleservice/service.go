// Package articleservice coordinates article persistence, the slug and
// hierarchy invariants, Markdown rendering and change notifications.
package articleservice

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/arbor/internal/apperr"
	"github.com/starford/arbor/internal/checksum"
	"github.com/starford/arbor/internal/markdown"
	"github.com/starford/arbor/internal/metrics"
	"github.com/starford/arbor/internal/models"
	"github.com/starford/arbor/internal/slug"
	"github.com/starford/arbor/internal/store"
	"github.com/starford/arbor/internal/tree"
)

// Notifier receives committed article changes. *sse.Broker satisfies it.
type Notifier interface {
	PublishArticleEvent(kind, id, slug string)
}

// Change kinds passed to Notifier.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Detail is the full representation of one article.
type Detail struct {
	models.Article
	Version     string             `json:"version"`
	Parent      *models.ParentRef  `json:"parent,omitempty"`
	Breadcrumbs []models.ParentRef `json:"breadcrumbs"`
}

// ListItem is one row of the article table.
type ListItem struct {
	models.Article
	ParentTitle string `json:"parent_title,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides article id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// Service implements every article use case on top of a store.Store.
type Service struct {
	store    store.Store
	renderer markdown.Renderer
	notify   Notifier
	now      func() time.Time
	newID    func() string
}

// New creates a service. A nil renderer falls back to goldmark.
func New(st store.Store, renderer markdown.Renderer, opts ...Option) *Service {
	if renderer == nil {
		renderer = markdown.NewGoldmark()
	}
	s := &Service{
		store:    st,
		renderer: renderer,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is UTC truncated to what both SQL backends store, so that
// versions survive a round trip.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// DeriveSlug exposes the slug rule to callers such as the editor.
func (s *Service) DeriveSlug(title string) string {
	return slug.Derive(title)
}

// List returns articles newest first with their parent titles. A non-empty
// query filters by title or parent title.
func (s *Service) List(ctx context.Context, query string) ([]ListItem, error) {
	all, err := s.store.Articles().All(ctx)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(all))
	for _, a := range all {
		titles[a.ID] = a.Title
	}

	var rows []models.Article
	if q := strings.TrimSpace(query); q != "" {
		rows, err = s.store.Articles().Search(ctx, q, 0)
		if err != nil {
			return nil, err
		}
	} else {
		rows = make([]models.Article, len(all))
		for i := range all {
			rows[len(all)-1-i] = all[i]
		}
	}

	items := make([]ListItem, len(rows))
	for i, a := range rows {
		items[i] = ListItem{Article: a}
		if !a.IsRoot() {
			items[i].ParentTitle = titles[*a.ParentID]
		}
	}
	return items, nil
}

// All returns every article, oldest first.
func (s *Service) All(ctx context.Context) ([]models.Article, error) {
	return s.store.Articles().All(ctx)
}

// Tree builds the forest from a fresh fetch.
func (s *Service) Tree(ctx context.Context) ([]*tree.Node, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TreeBuildDuration)

	all, err := s.store.Articles().All(ctx)
	if err != nil {
		return nil, err
	}
	if dangling := tree.ParentsOf(all).Dangling(); len(dangling) > 0 {
		slog.Warn("articles reference missing parents",
			slog.Any("ids", dangling),
			slog.String("error", apperr.ErrDanglingParent.Error()),
		)
	}
	return tree.BuildForest(all), nil
}

// ParentOptions lists the articles that may become the parent of id, by
// title. id itself and its descendants are excluded. An empty id lists all.
func (s *Service) ParentOptions(ctx context.Context, id string) ([]models.Article, error) {
	all, err := s.store.Articles().All(ctx)
	if err != nil {
		return nil, err
	}
	parents := tree.ParentsOf(all)
	out := make([]models.Article, 0, len(all))
	for _, a := range all {
		if id != "" && (a.ID == id || parents.IsAncestor(id, a.ID)) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out, nil
}

// Get returns one article by id.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	a, err := s.store.Articles().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, a)
}

// GetBySlug returns one article by slug.
func (s *Service) GetBySlug(ctx context.Context, sl string) (*Detail, error) {
	a, err := s.store.Articles().FindBySlug(ctx, sl, "")
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, a)
}

// Render returns the article content as HTML.
func (s *Service) Render(content string) (template.HTML, error) {
	return s.renderer.Render(content)
}

// Create validates req and inserts a new article. The slug check, the parent
// check and the insert share one transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Detail, error) {
	f, err := prepare(fields{Title: req.Title, Slug: req.Slug, Content: req.Content, ParentID: req.ParentID})
	if err != nil {
		observe("create", err)
		return nil, err
	}

	now := s.timestamp()
	a := &models.Article{
		ID:        s.newID(),
		Title:     f.Title,
		Slug:      f.Slug,
		Content:   f.Content,
		ParentID:  f.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx store.ArticleStore) error {
		if err := checkSlugFree(ctx, tx, a.Slug, ""); err != nil {
			return err
		}
		if a.ParentID != nil {
			if err := checkParentExists(ctx, tx, *a.ParentID); err != nil {
				return err
			}
		}
		return tx.Insert(ctx, a)
	})
	observe("create", err)
	if err != nil {
		return nil, err
	}
	s.publish(KindCreated, a)
	return s.detail(ctx, a)
}

// Update replaces the mutable fields of article id.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Detail, error) {
	f, err := prepare(fields{Title: req.Title, Slug: req.Slug, Content: req.Content, ParentID: req.ParentID})
	if err != nil {
		observe("update", err)
		return nil, err
	}

	var updated *models.Article
	err = s.store.InTx(ctx, func(ctx context.Context, tx store.ArticleStore) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if req.IfMatch != "" && req.IfMatch != version(cur) {
			return apperr.ErrConflict
		}
		if err := checkSlugFree(ctx, tx, f.Slug, id); err != nil {
			return err
		}
		if f.ParentID != nil {
			if err := checkReparent(ctx, tx, id, *f.ParentID); err != nil {
				return err
			}
		}
		cur.Title = f.Title
		cur.Slug = f.Slug
		cur.Content = f.Content
		cur.ParentID = f.ParentID
		cur.UpdatedAt = s.timestamp()
		if err := tx.Update(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	observe("update", err)
	if err != nil {
		return nil, err
	}
	s.publish(KindUpdated, updated)
	return s.detail(ctx, updated)
}

// Delete removes article id. Articles with children are refused.
func (s *Service) Delete(ctx context.Context, id string) error {
	var deleted *models.Article
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ArticleStore) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		children, err := tx.Children(ctx, id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return apperr.ErrHasChildren
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		deleted = cur
		return nil
	})
	observe("delete", err)
	if err != nil {
		return err
	}
	s.publish(KindDeleted, deleted)
	return nil
}

// Count returns the number of stored articles.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Articles().Count(ctx)
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) detail(ctx context.Context, a *models.Article) (*Detail, error) {
	d := &Detail{Article: *a, Version: version(a), Breadcrumbs: []models.ParentRef{}}
	if a.IsRoot() {
		return d, nil
	}

	all, err := s.store.Articles().All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Article, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}

	// Ancestors come nearest first; breadcrumbs read root first.
	ancestors := tree.ParentsOf(all).Ancestors(a.ID)
	for i := len(ancestors) - 1; i >= 0; i-- {
		p, ok := byID[ancestors[i]]
		if !ok {
			continue
		}
		d.Breadcrumbs = append(d.Breadcrumbs, ref(p))
	}
	if p, ok := byID[*a.ParentID]; ok {
		r := ref(p)
		d.Parent = &r
	}
	return d, nil
}

func (s *Service) publish(kind string, a *models.Article) {
	if s.notify == nil || a == nil {
		return
	}
	s.notify.PublishArticleEvent(kind, a.ID, a.Slug)
}

func checkSlugFree(ctx context.Context, tx store.ArticleStore, sl, excludeID string) error {
	_, err := tx.FindBySlug(ctx, sl, excludeID)
	switch {
	case err == nil:
		return apperr.ErrDuplicateSlug
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	default:
		return err
	}
}

func checkParentExists(ctx context.Context, tx store.ArticleStore, parentID string) error {
	if _, err := tx.Get(ctx, parentID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrParentNotFound
		}
		return err
	}
	return nil
}

// checkReparent rejects a parent that is missing, is id itself, or sits
// below id in the hierarchy.
func checkReparent(ctx context.Context, tx store.ArticleStore, id, parentID string) error {
	if parentID == id {
		return apperr.ErrCycle
	}
	if err := checkParentExists(ctx, tx, parentID); err != nil {
		return err
	}
	all, err := tx.All(ctx)
	if err != nil {
		return err
	}
	if tree.ParentsOf(all).WouldCycle(id, parentID) {
		return apperr.ErrCycle
	}
	return nil
}

func version(a *models.Article) string {
	return checksum.Version(a.ID, a.UpdatedAt, a.Content)
}

func ref(a models.Article) models.ParentRef {
	return models.ParentRef{ID: a.ID, Title: a.Title, Slug: a.Slug}
}

func observe(op string, err error) {
	switch {
	case err == nil:
		metrics.ObserveArticleOp(op, metrics.ResultOK)
	case isDomainError(err):
		metrics.ObserveArticleOp(op, metrics.ResultRejected)
	default:
		metrics.ObserveArticleOp(op, metrics.ResultError)
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		apperr.ErrValidation,
		apperr.ErrNotFound,
		apperr.ErrParentNotFound,
		apperr.ErrDuplicateSlug,
		apperr.ErrHasChildren,
		apperr.ErrCycle,
		apperr.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
