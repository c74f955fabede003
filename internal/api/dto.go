package api

import (
	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/tree"
)

// CreateArticleRequest is the request body for creating an article.
type CreateArticleRequest = articleservice.CreateRequest

// UpdateArticleRequest is the request body for updating an article.
type UpdateArticleRequest = articleservice.UpdateRequest

// ArticleDetail is the full article response type (aliased from the domain layer).
type ArticleDetail = articleservice.Detail

// ArticleListItem is one row of a list response (aliased from the domain layer).
type ArticleListItem = articleservice.ListItem

// ArticleListResponse wraps article listings.
type ArticleListResponse struct {
	Articles []ArticleListItem `json:"articles" validate:"required"`
	Total    int               `json:"total" example:"5" validate:"required"`
}

// TreeNode is one node of the article forest.
type TreeNode struct {
	ID       string     `json:"id" example:"7d9c..." validate:"required"`
	Title    string     `json:"title" example:"Technology" validate:"required"`
	Slug     string     `json:"slug" example:"technology" validate:"required"`
	ParentID *string    `json:"parent_id"`
	Orphan   bool       `json:"orphan,omitempty"`
	Children []TreeNode `json:"children" validate:"required"`
}

// TreeResponse wraps the article forest.
type TreeResponse struct {
	Roots []TreeNode `json:"roots" validate:"required"`
	Total int        `json:"total" example:"5" validate:"required"`
}

// HTMLResponse carries rendered article content.
type HTMLResponse struct {
	ID   string `json:"id" validate:"required"`
	HTML string `json:"html" example:"<h1>Technology</h1>" validate:"required"`
}

// SlugRequest asks for the slug of a title.
type SlugRequest struct {
	Title string `json:"title" example:"Getting Started with React" validate:"required"`
}

// SlugResponse is the derived slug.
type SlugResponse struct {
	Slug string `json:"slug" example:"getting-started-with-react" validate:"required"`
}

func toTreeNodes(nodes []*tree.Node) []TreeNode {
	out := make([]TreeNode, len(nodes))
	for i, n := range nodes {
		out[i] = TreeNode{
			ID:       n.Article.ID,
			Title:    n.Article.Title,
			Slug:     n.Article.Slug,
			ParentID: n.Article.ParentID,
			Orphan:   n.Orphan,
			Children: toTreeNodes(n.Children),
		}
	}
	return out
}
