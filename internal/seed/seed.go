// Package seed loads the sample article hierarchy.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/starford/arbor/internal/apperr"
	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/parser"
)

// Files are applied in name order, so parents come first.
//
//go:embed articles/*.md
var articles embed.FS

// Sample is one seed article.
type Sample struct {
	Title   string
	Slug    string
	Parent  string
	Content string
}

// Samples returns the embedded seed articles in apply order.
func Samples() ([]Sample, error) {
	entries, err := fs.ReadDir(articles, "articles")
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(entries))
	for _, e := range entries {
		data, err := articles.ReadFile(path.Join("articles", e.Name()))
		if err != nil {
			return nil, err
		}
		doc, err := parser.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("seed: %s: %w", e.Name(), err)
		}
		out = append(out, Sample{Title: doc.Title, Slug: doc.Slug, Parent: doc.Parent, Content: doc.Body})
	}
	return out, nil
}

// Run creates every sample whose slug is not taken yet and returns how many
// were created. Existing articles are left untouched.
func Run(ctx context.Context, svc *articleservice.Service, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	samples, err := Samples()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, s := range samples {
		_, err := svc.GetBySlug(ctx, s.Slug)
		if err == nil {
			logger.Debug("seed: exists", slog.String("slug", s.Slug))
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return created, err
		}

		req := articleservice.CreateRequest{Title: s.Title, Slug: s.Slug, Content: s.Content}
		if s.Parent != "" {
			parent, err := svc.GetBySlug(ctx, s.Parent)
			if err != nil {
				return created, fmt.Errorf("seed: parent %q of %q: %w", s.Parent, s.Slug, err)
			}
			req.ParentID = &parent.ID
		}
		if _, err := svc.Create(ctx, req); err != nil {
			return created, fmt.Errorf("seed: create %q: %w", s.Slug, err)
		}
		created++
	}
	logger.Info("seed: done", slog.Int("created", created), slog.Int("samples", len(samples)))
	return created, nil
}
