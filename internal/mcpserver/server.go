// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes arbor article tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/parser"
	"github.com/starford/arbor/internal/tree"
)

const formatURI = "arbor://article-format"

// Server wraps the MCP server with arbor tools.
type Server struct {
	mcp *server.MCPServer
	svc *articleservice.Service
}

// New creates a new MCP server with all arbor tools registered.
func New(svc *articleservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Arbor",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List articles newest first with their parent titles."),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Find articles whose title or parent title contains the query (case-insensitive)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("article_tree",
		mcp.WithDescription("Show the article hierarchy as an indented outline of titles and slugs."),
		mcp.WithString("root", mcp.Description("Optional slug; only this article and its descendants are shown")),
	), s.articleTree)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read an article as Markdown with YAML front matter (title, slug, parent)."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the article")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("create_article",
		mcp.WithDescription("Create an article. Read the format first via the get_article_contract "+
			"tool or the "+formatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Article title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body")),
		mcp.WithString("slug", mcp.Description("Optional slug; derived from the title when empty")),
		mcp.WithString("parent", mcp.Description("Optional slug of the parent article")),
	), s.createArticle)

	s.mcp.AddTool(mcp.NewTool("update_article",
		mcp.WithDescription("Update an article. Omitted fields keep their current value; "+
			"an empty parent moves the article to the root."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Current slug of the article")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New Markdown body")),
		mcp.WithString("new_slug", mcp.Description("New slug")),
		mcp.WithString("parent", mcp.Description("Slug of the new parent, or empty for root")),
	), s.updateArticle)

	s.mcp.AddTool(mcp.NewTool("delete_article",
		mcp.WithDescription("Delete an article that has no children."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the article")),
	), s.deleteArticle)

	s.mcp.AddTool(mcp.NewTool("derive_slug",
		mcp.WithDescription("Derive the URL slug for a title without saving anything."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title to convert")),
	), s.deriveSlug)

	s.mcp.AddTool(mcp.NewTool("get_article_contract",
		mcp.WithDescription("Returns the arbor article format. "+
			"Call this before creating or updating articles."),
	), s.getArticleContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Article Format",
			mcp.WithResourceDescription("Fields and rules every arbor article follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

type listEntry struct {
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Parent string `json:"parent,omitempty"`
}

func (s *Server) list(ctx context.Context, query string) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no articles found"), nil
	}
	out := make([]listEntry, len(items))
	for i, it := range items {
		out[i] = listEntry{Title: it.Title, Slug: it.Slug, Parent: it.ParentTitle}
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.list(ctx, "")
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.list(ctx, query)
}

func (s *Server) articleTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	forest, err := s.svc.Tree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(forest) == 0 {
		return mcp.NewToolResultText("no articles yet"), nil
	}
	if root := strings.TrimSpace(req.GetString("root", "")); root != "" {
		d, err := s.svc.GetBySlug(ctx, root)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", root)), nil
		}
		n := tree.Find(forest, d.ID)
		if n == nil {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", root)), nil
		}
		forest = []*tree.Node{n}
	}
	var b strings.Builder
	tree.Walk(forest, func(n *tree.Node, depth int) bool {
		fmt.Fprintf(&b, "%s- %s (%s)\n", strings.Repeat("  ", depth), n.Article.Title, n.Article.Slug)
		return true
	})
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sl, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetBySlug(ctx, sl)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", sl)), nil
	}
	fm := parser.FrontMatter{Title: d.Title, Slug: d.Slug}
	if d.Parent != nil {
		fm.Parent = d.Parent.Slug
	}
	data, err := parser.Encode(fm, d.Content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// parentID resolves a parent slug to an id; an empty slug means root.
func (s *Server) parentID(ctx context.Context, parentSlug string) (*string, error) {
	parentSlug = strings.TrimSpace(parentSlug)
	if parentSlug == "" {
		return nil, nil
	}
	p, err := s.svc.GetBySlug(ctx, parentSlug)
	if err != nil {
		return nil, fmt.Errorf("parent %q: %w", parentSlug, err)
	}
	return &p.ID, nil
}

func (s *Server) createArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent, err := s.parentID(ctx, req.GetString("parent", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := s.svc.Create(ctx, articleservice.CreateRequest{
		Title:    title,
		Slug:     req.GetString("slug", ""),
		Content:  content,
		ParentID: parent,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", d.Slug)), nil
}

func (s *Server) updateArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sl, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cur, err := s.svc.GetBySlug(ctx, sl)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", sl)), nil
	}

	upd := articleservice.UpdateRequest{
		Title:    req.GetString("title", cur.Title),
		Slug:     req.GetString("new_slug", cur.Slug),
		Content:  req.GetString("content", cur.Content),
		ParentID: cur.ParentID,
		IfMatch:  cur.Version,
	}
	if _, ok := req.GetArguments()["parent"]; ok {
		upd.ParentID, err = s.parentID(ctx, req.GetString("parent", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	d, err := s.svc.Update(ctx, cur.ID, upd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", d.Slug)), nil
}

func (s *Server) deleteArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sl, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetBySlug(ctx, sl)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", sl)), nil
	}
	if err := s.svc.Delete(ctx, d.ID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", sl)), nil
}

func (s *Server) deriveSlug(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.svc.DeriveSlug(title)), nil
}

func (s *Server) getArticleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArticleFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
