package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/markdown"
	"github.com/starford/arbor/internal/testutil"
)

func testServer(t *testing.T) (*Server, *articleservice.Service) {
	t.Helper()
	svc := articleservice.New(testutil.TestDB(t), markdown.Basic{})
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_articles":        srv.listArticles,
		"search_articles":      srv.searchArticles,
		"article_tree":         srv.articleTree,
		"read_article":         srv.readArticle,
		"create_article":       srv.createArticle,
		"update_article":       srv.updateArticle,
		"delete_article":       srv.deleteArticle,
		"derive_slug":          srv.deriveSlug,
		"get_article_contract": srv.getArticleContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustCreate(t *testing.T, srv *Server, args map[string]any) {
	t.Helper()
	r := callTool(t, srv, "create_article", args)
	if r.IsError {
		t.Fatalf("create %v: %s", args, resultText(r))
	}
}

func TestCreateAndReadArticle(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_article", map[string]any{
		"title":   "Technology",
		"content": "# Technology\nHello",
	})
	if text := resultText(r); text != "created: technology" {
		t.Errorf("create result = %q", text)
	}
	mustCreate(t, srv, map[string]any{"title": "Programming", "content": "Code.", "parent": "technology"})

	r = callTool(t, srv, "read_article", map[string]any{"slug": "programming"})
	text := resultText(r)
	for _, want := range []string{"title: Programming", "slug: programming", "parent: technology", "Code."} {
		if !strings.Contains(text, want) {
			t.Errorf("read result missing %q:\n%s", want, text)
		}
	}
}

func TestCreateArticle_Errors(t *testing.T) {
	srv, _ := testServer(t)
	mustCreate(t, srv, map[string]any{"title": "Technology", "content": "x"})

	r := callTool(t, srv, "create_article", map[string]any{"title": "Technology", "content": "again"})
	if !r.IsError || !strings.Contains(resultText(r), "slug already exists") {
		t.Errorf("duplicate = %q", resultText(r))
	}

	r = callTool(t, srv, "create_article", map[string]any{"title": "Lost", "content": "x", "parent": "nowhere"})
	if !r.IsError {
		t.Error("expected error for unknown parent")
	}

	r = callTool(t, srv, "create_article", map[string]any{"title": "No body"})
	if !r.IsError {
		t.Error("expected error for missing content")
	}
}

func TestReadArticleMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_article", map[string]any{"slug": "nope"})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
}

func TestListAndSearchArticles(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "list_articles", map[string]any{})); text != "no articles found" {
		t.Errorf("empty list = %q", text)
	}

	mustCreate(t, srv, map[string]any{"title": "Technology", "content": "x"})
	mustCreate(t, srv, map[string]any{"title": "Programming", "content": "x", "parent": "technology"})
	mustCreate(t, srv, map[string]any{"title": "Cooking", "content": "x"})

	text := resultText(callTool(t, srv, "list_articles", map[string]any{}))
	if !strings.Contains(text, `"slug": "cooking"`) {
		t.Errorf("list = %s", text)
	}

	text = resultText(callTool(t, srv, "search_articles", map[string]any{"query": "TECH"}))
	if strings.Contains(text, "cooking") || !strings.Contains(text, `"parent": "Technology"`) {
		t.Errorf("search = %s", text)
	}
}

func TestArticleTree(t *testing.T) {
	srv, _ := testServer(t)
	mustCreate(t, srv, map[string]any{"title": "Technology", "content": "x"})
	mustCreate(t, srv, map[string]any{"title": "Programming", "content": "x", "parent": "technology"})
	mustCreate(t, srv, map[string]any{"title": "Web Development", "content": "x", "parent": "programming"})

	text := resultText(callTool(t, srv, "article_tree", map[string]any{}))
	want := "- Technology (technology)\n  - Programming (programming)\n    - Web Development (web-development)\n"
	if text != want {
		t.Errorf("tree =\n%s\nwant\n%s", text, want)
	}

	text = resultText(callTool(t, srv, "article_tree", map[string]any{"root": "programming"}))
	want = "- Programming (programming)\n  - Web Development (web-development)\n"
	if text != want {
		t.Errorf("subtree =\n%s\nwant\n%s", text, want)
	}

	if r := callTool(t, srv, "article_tree", map[string]any{"root": "missing"}); !r.IsError {
		t.Errorf("unknown root should fail, got %s", resultText(r))
	}
}

func TestUpdateArticle(t *testing.T) {
	srv, svc := testServer(t)
	mustCreate(t, srv, map[string]any{"title": "Technology", "content": "x"})
	mustCreate(t, srv, map[string]any{"title": "Programming", "content": "old", "parent": "technology"})

	r := callTool(t, srv, "update_article", map[string]any{"slug": "programming", "content": "new"})
	if r.IsError {
		t.Fatalf("update: %s", resultText(r))
	}
	d, err := svc.GetBySlug(context.Background(), "programming")
	if err != nil {
		t.Fatal(err)
	}
	if d.Content != "new" || d.Title != "Programming" || d.ParentID == nil {
		t.Errorf("partial update changed other fields: %+v", d.Article)
	}

	r = callTool(t, srv, "update_article", map[string]any{"slug": "programming", "parent": ""})
	if r.IsError {
		t.Fatalf("move to root: %s", resultText(r))
	}
	d, _ = svc.GetBySlug(context.Background(), "programming")
	if d.ParentID != nil {
		t.Error("expected programming to be a root")
	}
}

func TestUpdateArticle_Cycle(t *testing.T) {
	srv, _ := testServer(t)
	mustCreate(t, srv, map[string]any{"title": "Technology", "content": "x"})
	mustCreate(t, srv, map[string]any{"title": "Programming", "content": "x", "parent": "technology"})

	r := callTool(t, srv, "update_article", map[string]any{"slug": "technology", "parent": "programming"})
	if !r.IsError || !strings.Contains(resultText(r), "cycle") {
		t.Errorf("cycle update = %q", resultText(r))
	}
}

func TestDeleteArticle(t *testing.T) {
	srv, _ := testServer(t)
	mustCreate(t, srv, map[string]any{"title": "Technology", "content": "x"})
	mustCreate(t, srv, map[string]any{"title": "Programming", "content": "x", "parent": "technology"})

	r := callTool(t, srv, "delete_article", map[string]any{"slug": "technology"})
	if !r.IsError {
		t.Error("expected error deleting an article with children")
	}
	r = callTool(t, srv, "delete_article", map[string]any{"slug": "programming"})
	if text := resultText(r); text != "deleted: programming" {
		t.Errorf("delete = %q", text)
	}
}

func TestDeriveSlugAndContract(t *testing.T) {
	srv, _ := testServer(t)
	if got := resultText(callTool(t, srv, "derive_slug", map[string]any{"title": "Getting Started with React!"})); got != "getting-started-with-react" {
		t.Errorf("derive = %q", got)
	}
	if got := resultText(callTool(t, srv, "get_article_contract", map[string]any{})); got != ArticleFormatContract {
		t.Error("contract mismatch")
	}

	res, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
}
