// Package vault imports and exports articles as a directory of Markdown
// files with YAML front matter, and keeps the database in step with the
// directory while it is watched.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/starford/arbor/internal/apperr"
	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/metrics"
	"github.com/starford/arbor/internal/models"
	"github.com/starford/arbor/internal/parser"
	"github.com/starford/arbor/internal/slug"
	"github.com/starford/arbor/internal/storage"
)

// Report summarises one import pass.
type Report struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Vault binds a Markdown directory to the article service.
type Vault struct {
	svc    *articleservice.Service
	files  storage.Provider
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // path -> checksum of the last imported or exported bytes
}

// New creates a vault over files.
func New(svc *articleservice.Service, files storage.Provider, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{
		svc:    svc,
		files:  files,
		logger: logger,
		seen:   make(map[string]string),
	}
}

type entry struct {
	path     string
	checksum string
	doc      *parser.Result
	slug     string
}

// Import upserts every changed file by slug. Parents are resolved by slug in
// a second pass, so files may appear in any order.
func (v *Vault) Import(ctx context.Context) (Report, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var rep Report
	files, err := v.files.List("")
	if err != nil {
		return rep, err
	}

	entries := make([]entry, 0, len(files))
	for _, f := range files {
		if v.seen[f.Path] == f.Checksum {
			rep.Unchanged++
			continue
		}
		data, err := v.files.Read(f.Path)
		if err != nil {
			v.skip(&rep, f.Path, err)
			continue
		}
		doc, err := parser.Parse(data)
		if err != nil {
			v.skip(&rep, f.Path, err)
			continue
		}
		entries = append(entries, entry{
			path:     f.Path,
			checksum: f.Checksum,
			doc:      doc,
			slug:     fileSlug(f.Path, doc),
		})
	}

	// Pass 1: content. New articles start at the root.
	placed := entries[:0]
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		created, changed, err := v.upsert(ctx, e)
		if err != nil {
			v.skip(&rep, e.path, err)
			continue
		}
		switch {
		case created:
			rep.Created++
		case changed:
			rep.Updated++
		default:
			rep.Unchanged++
		}
		placed = append(placed, e)
	}

	// Pass 2: hierarchy. A file whose parent is not resolved stays out of
	// seen so the next import retries it.
	for _, e := range placed {
		if err := v.reparent(ctx, e); err != nil {
			v.logger.Warn("vault: parent not applied",
				slog.String("path", e.path),
				slog.String("parent", e.doc.Parent),
				slog.String("error", err.Error()))
			delete(v.seen, e.path)
			continue
		}
		v.seen[e.path] = e.checksum
		metrics.VaultFilesTotal.WithLabelValues("import", metrics.ResultOK).Inc()
	}

	v.logger.Info("vault: import finished",
		slog.Int("created", rep.Created),
		slog.Int("updated", rep.Updated),
		slog.Int("unchanged", rep.Unchanged),
		slog.Int("skipped", rep.Skipped))
	return rep, nil
}

func (v *Vault) upsert(ctx context.Context, e entry) (created, changed bool, err error) {
	cur, err := v.svc.GetBySlug(ctx, e.slug)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		_, err = v.svc.Create(ctx, articleservice.CreateRequest{
			Title:   e.doc.Title,
			Slug:    e.slug,
			Content: e.doc.Body,
		})
		return err == nil, false, err
	case err != nil:
		return false, false, err
	}

	if cur.Title == e.doc.Title && cur.Content == e.doc.Body {
		return false, false, nil
	}
	_, err = v.svc.Update(ctx, cur.ID, articleservice.UpdateRequest{
		Title:    e.doc.Title,
		Slug:     e.slug,
		Content:  e.doc.Body,
		ParentID: cur.ParentID,
	})
	return false, err == nil, err
}

func (v *Vault) reparent(ctx context.Context, e entry) error {
	cur, err := v.svc.GetBySlug(ctx, e.slug)
	if err != nil {
		return err
	}

	var want *string
	if p := strings.TrimSpace(e.doc.Parent); p != "" {
		parent, err := v.svc.GetBySlug(ctx, p)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return fmt.Errorf("%w: %s", apperr.ErrParentNotFound, p)
			}
			return err
		}
		want = &parent.ID
	}
	if sameParent(cur.ParentID, want) {
		return nil
	}
	_, err = v.svc.Update(ctx, cur.ID, articleservice.UpdateRequest{
		Title:    cur.Title,
		Slug:     cur.Slug,
		Content:  cur.Content,
		ParentID: want,
	})
	return err
}

func (v *Vault) skip(rep *Report, p string, err error) {
	rep.Skipped++
	metrics.VaultFilesTotal.WithLabelValues("import", metrics.ResultError).Inc()
	v.logger.Warn("vault: file skipped", slog.String("path", p), slog.String("error", err.Error()))
}

// Export writes every article to <slug>.md. With prune, Markdown files that
// no longer correspond to an article are removed.
func (v *Vault) Export(ctx context.Context, prune bool) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	all, err := v.svc.All(ctx)
	if err != nil {
		return 0, err
	}
	slugs := make(map[string]string, len(all))
	for _, a := range all {
		slugs[a.ID] = a.Slug
	}

	written := make(map[string]struct{}, len(all))
	for _, a := range all {
		p := FileName(a.Slug)
		data, err := encode(a, slugs)
		if err != nil {
			return len(written), err
		}
		if err := v.files.Write(p, data); err != nil {
			metrics.VaultFilesTotal.WithLabelValues("export", metrics.ResultError).Inc()
			return len(written), err
		}
		metrics.VaultFilesTotal.WithLabelValues("export", metrics.ResultOK).Inc()
		written[p] = struct{}{}
	}

	// Record what was written so a watcher does not re-import it.
	files, err := v.files.List("")
	if err != nil {
		return len(written), err
	}
	for _, f := range files {
		if _, ok := written[f.Path]; ok {
			v.seen[f.Path] = f.Checksum
			continue
		}
		if !prune {
			continue
		}
		if err := v.files.Delete(f.Path); err != nil {
			return len(written), err
		}
		delete(v.seen, f.Path)
		v.logger.Info("vault: pruned", slog.String("path", f.Path))
	}

	v.logger.Info("vault: export finished", slog.Int("articles", len(written)))
	return len(written), nil
}

// FileName is the vault path of the article with slug s.
func FileName(s string) string {
	return s + ".md"
}

func encode(a models.Article, slugs map[string]string) ([]byte, error) {
	fm := parser.FrontMatter{Title: a.Title, Slug: a.Slug}
	if !a.IsRoot() {
		fm.Parent = slugs[*a.ParentID]
	}
	return parser.Encode(fm, a.Content)
}

// fileSlug picks the front matter slug, then the title, then the file name.
func fileSlug(p string, doc *parser.Result) string {
	if s := strings.TrimSpace(doc.Slug); s != "" {
		return s
	}
	if s := slug.Derive(doc.Title); s != "" {
		return s
	}
	return slug.Derive(strings.TrimSuffix(path.Base(p), ".md"))
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
