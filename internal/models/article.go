// Package models defines the domain types for arbor.
package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Article is the sole content entity: one node of a self-referencing
// hierarchy stored as a flat table of parent pointers.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:a" json:"-"`

	ID        string    `bun:"id,pk" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Slug      string    `bun:"slug,notnull,unique" json:"slug"`
	Content   string    `bun:"content,notnull" json:"content"`
	ParentID  *string   `bun:"parent_id" json:"parent_id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// IsRoot reports whether the article has no declared parent.
func (a *Article) IsRoot() bool {
	return a.ParentID == nil || *a.ParentID == ""
}

// ParentRef is the parent summary shown next to an article.
type ParentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}
