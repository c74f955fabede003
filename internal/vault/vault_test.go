package vault

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/markdown"
	"github.com/starford/arbor/internal/storage"
	"github.com/starford/arbor/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setup(t *testing.T) (string, *Vault, *articleservice.Service) {
	t.Helper()
	svc := articleservice.New(testutil.TestDB(t), markdown.Basic{})
	dir, files := testutil.TestVault(t)
	return dir, New(svc, files, quietLogger()), svc
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestImport_ResolvesParentsInAnyOrder(t *testing.T) {
	dir, v, svc := setup(t)
	ctx := context.Background()
	writeFile(t, dir, "a-web.md", "---\ntitle: Web Development\nparent: programming\n---\nHTML and friends.\n")
	writeFile(t, dir, "b-programming.md", "---\ntitle: Programming\nslug: programming\nparent: technology\n---\nCode.\n")
	writeFile(t, dir, "nested/technology.md", "# Technology\nAll things tech.\n")

	rep, err := v.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 3}, rep)

	web, err := svc.GetBySlug(ctx, "web-development")
	require.NoError(t, err)
	require.Len(t, web.Breadcrumbs, 2)
	assert.Equal(t, "technology", web.Breadcrumbs[0].Slug)
	assert.Equal(t, "programming", web.Breadcrumbs[1].Slug)

	forest, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, "Technology", forest[0].Article.Title)
}

func TestImport_SkipsUnchangedAndUpdatesChanged(t *testing.T) {
	dir, v, svc := setup(t)
	ctx := context.Background()
	writeFile(t, dir, "one.md", "---\ntitle: One\n---\nfirst\n")

	_, err := v.Import(ctx)
	require.NoError(t, err)

	rep, err := v.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Unchanged: 1}, rep)

	writeFile(t, dir, "one.md", "---\ntitle: One\n---\nsecond\n")
	rep, err = v.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Updated: 1}, rep)

	d, err := svc.GetBySlug(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "second", d.Content)
}

func TestImport_SkipsInvalidFiles(t *testing.T) {
	dir, v, svc := setup(t)
	ctx := context.Background()
	writeFile(t, dir, "empty.md", "---\ntitle: Empty\n---\n")
	writeFile(t, dir, "broken.md", "---\ntitle: [oops\n---\nbody\n")
	writeFile(t, dir, "ok.md", "---\ntitle: Fine\n---\nbody\n")

	rep, err := v.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 2, rep.Skipped)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImport_MissingParentStaysRoot(t *testing.T) {
	dir, v, svc := setup(t)
	ctx := context.Background()
	writeFile(t, dir, "lonely.md", "---\ntitle: Lonely\nparent: nobody\n---\nbody\n")

	rep, err := v.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)

	d, err := svc.GetBySlug(ctx, "lonely")
	require.NoError(t, err)
	assert.Nil(t, d.ParentID)
}

func TestImport_RetriesParentOnceItAppears(t *testing.T) {
	dir, v, svc := setup(t)
	ctx := context.Background()
	writeFile(t, dir, "child.md", "---\ntitle: Child\nparent: later\n---\nbody\n")

	_, err := v.Import(ctx)
	require.NoError(t, err)
	d, err := svc.GetBySlug(ctx, "child")
	require.NoError(t, err)
	assert.Nil(t, d.ParentID)

	writeFile(t, dir, "later.md", "---\ntitle: Later\n---\nparent body\n")
	rep, err := v.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 1, Unchanged: 1}, rep)

	d, err = svc.GetBySlug(ctx, "child")
	require.NoError(t, err)
	require.NotNil(t, d.Parent)
	assert.Equal(t, "later", d.Parent.Slug)

	// Resolved now, so the child is no longer re-read.
	rep, err = v.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Unchanged: 2}, rep)
}

func TestExport_WritesFrontMatterAndPrunes(t *testing.T) {
	_, _, svc := setup(t)
	ctx := context.Background()
	root, err := svc.Create(ctx, articleservice.CreateRequest{Title: "Technology", Content: "Tech."})
	require.NoError(t, err)
	_, err = svc.Create(ctx, articleservice.CreateRequest{Title: "Programming", Content: "Code.", ParentID: &root.ID})
	require.NoError(t, err)

	outDir := t.TempDir()
	out, err := storage.NewFS(outDir)
	require.NoError(t, err)
	require.NoError(t, out.Write("stale.md", []byte("---\ntitle: Stale\n---\nold\n")))

	exp := New(svc, out, quietLogger())
	n, err := exp.Export(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := out.Read("programming.md")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "parent: technology"))
	_, err = out.Read("stale.md")
	assert.Error(t, err)

	// Exported files are not re-imported by the same vault.
	rep, err := exp.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Unchanged: 2}, rep)
}

func TestExportThenImport_RoundTrip(t *testing.T) {
	_, _, src := setup(t)
	ctx := context.Background()
	root, err := src.Create(ctx, articleservice.CreateRequest{Title: "Technology", Content: "Tech."})
	require.NoError(t, err)
	_, err = src.Create(ctx, articleservice.CreateRequest{Title: "Programming", Content: "Code.", ParentID: &root.ID})
	require.NoError(t, err)

	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	require.NoError(t, err)
	_, err = New(src, files, quietLogger()).Export(ctx, false)
	require.NoError(t, err)

	dst := articleservice.New(testutil.TestDB(t), markdown.Basic{})
	rep, err := New(dst, files, quietLogger()).Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Created)

	prog, err := dst.GetBySlug(ctx, "programming")
	require.NoError(t, err)
	require.NotNil(t, prog.Parent)
	assert.Equal(t, "technology", prog.Parent.Slug)
	assert.Equal(t, "Code.", prog.Content)
}

func TestExportThenImport_FreshVaultLeavesArticlesUntouched(t *testing.T) {
	_, _, svc := setup(t)
	ctx := context.Background()
	root, err := svc.Create(ctx, articleservice.CreateRequest{Title: "Technology", Content: "Tech."})
	require.NoError(t, err)
	prog, err := svc.Create(ctx, articleservice.CreateRequest{Title: "Programming", Content: "Code.\n\n", ParentID: &root.ID})
	require.NoError(t, err)

	files, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	_, err = New(svc, files, quietLogger()).Export(ctx, false)
	require.NoError(t, err)

	// A new vault has no record of the export and reads every file.
	rep, err := New(svc, files, quietLogger()).Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Unchanged: 2}, rep)

	after, err := svc.Get(ctx, prog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Code.\n\n", after.Content)
	assert.Equal(t, prog.Version, after.Version)
}

func TestWatch_ImportsNewFiles(t *testing.T) {
	dir, v, svc := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- v.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "fresh.md", "---\ntitle: Fresh\n---\nnew\n")

	require.Eventually(t, func() bool {
		_, err := svc.GetBySlug(context.Background(), "fresh")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "watcher did not import new file")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
