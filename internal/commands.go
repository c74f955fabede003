package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/arbor/internal/mcpserver"
	"github.com/starford/arbor/internal/seed"
	"github.com/starford/arbor/internal/vault"
)

var errDirRequired = errors.New("directory is required")

// Seed creates the sample articles that are not present yet.
func Seed(ctx context.Context, opts ...Option) (int, error) {
	app, logger, err := newApplication(opts)
	if err != nil {
		return 0, err
	}
	db, svc, err := app.openService(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	n, err := seed.Run(ctx, svc, logger)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	logger.Info("Seed finished", slog.Int("created", n))
	return n, nil
}

// Import upserts every Markdown file under dir into the article store.
func Import(ctx context.Context, dir string, opts ...Option) (vault.Report, error) {
	if dir == "" {
		return vault.Report{}, errDirRequired
	}
	app, logger, err := newApplication(opts)
	if err != nil {
		return vault.Report{}, err
	}
	db, svc, err := app.openService(ctx)
	if err != nil {
		return vault.Report{}, err
	}
	defer db.Close()

	v, err := openVault(dir, svc, logger)
	if err != nil {
		return vault.Report{}, err
	}
	rep, err := v.Import(ctx)
	if err != nil {
		return rep, fmt.Errorf("import %s: %w", dir, err)
	}
	return rep, nil
}

// Export writes every article to dir as <slug>.md. With prune, Markdown
// files that no longer match an article are removed.
func Export(ctx context.Context, dir string, prune bool, opts ...Option) (int, error) {
	if dir == "" {
		return 0, errDirRequired
	}
	app, logger, err := newApplication(opts)
	if err != nil {
		return 0, err
	}
	db, svc, err := app.openService(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	v, err := openVault(dir, svc, logger)
	if err != nil {
		return 0, err
	}
	n, err := v.Export(ctx, prune)
	if err != nil {
		return n, fmt.Errorf("export %s: %w", dir, err)
	}
	return n, nil
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	db, svc, err := app.openService(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Starting MCP server", slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}
