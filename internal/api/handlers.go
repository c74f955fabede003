package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/tree"
)

// Handler holds API route handlers.
type Handler struct {
	svc *articleservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *articleservice.Service) *Handler {
	return &Handler{svc: svc}
}

func setETag(w http.ResponseWriter, d *ArticleDetail) {
	w.Header().Set("ETag", `"`+d.Version+`"`)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListArticles handles GET /api/articles.
//
//	@Summary		List articles, newest first
//	@Tags			articles
//	@Produce		json
//	@Param			q	query		string	false	"Filter by title or parent title"
//	@Success		200	{object}	ArticleListResponse
//	@Security		BearerAuth
//	@Router			/articles [get]
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Total: len(items)})
}

// Tree handles GET /api/articles/tree.
//
//	@Summary		Get the article hierarchy
//	@Tags			articles
//	@Produce		json
//	@Success		200	{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/articles/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.svc.Tree(r.Context())
	if err != nil {
		writeError(w, "article tree", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Roots: toTreeNodes(forest), Total: tree.Count(forest)})
}

// GetArticle handles GET /api/articles/{id}.
//
//	@Summary		Get a single article by id
//	@Tags			articles
//	@Produce		json
//	@Param			id	path		string	true	"Article id"
//	@Success		200	{object}	ArticleDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [get]
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get article", err)
		return
	}
	setETag(w, d)
	writeJSON(w, http.StatusOK, d)
}

// GetArticleBySlug handles GET /api/articles/slug/{slug}.
//
//	@Summary		Get a single article by slug
//	@Tags			articles
//	@Produce		json
//	@Param			slug	path		string	true	"Article slug"
//	@Success		200		{object}	ArticleDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/slug/{slug} [get]
func (h *Handler) GetArticleBySlug(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "get article by slug", err)
		return
	}
	setETag(w, d)
	writeJSON(w, http.StatusOK, d)
}

// RenderArticle handles GET /api/articles/{id}/html.
//
//	@Summary		Render article content to HTML
//	@Tags			articles
//	@Produce		json
//	@Param			id	path		string	true	"Article id"
//	@Success		200	{object}	HTMLResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/html [get]
func (h *Handler) RenderArticle(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "render article", err)
		return
	}
	html, err := h.svc.Render(d.Content)
	if err != nil {
		writeError(w, "render article", err)
		return
	}
	writeJSON(w, http.StatusOK, HTMLResponse{ID: d.ID, HTML: string(html)})
}

// CreateArticle handles POST /api/articles.
//
//	@Summary		Create a new article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateArticleRequest	true	"Article to create"
//	@Success		201		{object}	ArticleDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles [post]
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create article", err)
		return
	}
	setETag(w, d)
	w.Header().Set("Location", "/api/articles/"+d.ID)
	writeJSON(w, http.StatusCreated, d)
}

// UpdateArticle handles PUT /api/articles/{id}.
//
//	@Summary		Update an article with optimistic concurrency
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Article id"
//	@Param			If-Match	header		string					false	"Version from a previous ETag"
//	@Param			body		body		UpdateArticleRequest	true	"Replacement fields"
//	@Success		200			{object}	ArticleDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [put]
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req UpdateArticleRequest
	if !decode(w, r, &req) {
		return
	}
	req.IfMatch = ifMatchVersion(r.Header.Get("If-Match"))

	d, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update article", err)
		return
	}
	setETag(w, d)
	writeJSON(w, http.StatusOK, d)
}

// ifMatchVersion extracts the version from an If-Match header. "*" matches
// any current version and yields "", which skips the check. Weak tags
// compare by their opaque value.
func ifMatchVersion(h string) string {
	h = strings.TrimSpace(h)
	if h == "*" {
		return ""
	}
	h = strings.TrimPrefix(h, "W/")
	return strings.Trim(h, `"`)
}

// DeleteArticle handles DELETE /api/articles/{id}.
//
//	@Summary		Delete an article without children
//	@Tags			articles
//	@Param			id	path	string	true	"Article id"
//	@Success		204	"Article deleted"
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [delete]
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete article", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeriveSlug handles POST /api/slug.
//
//	@Summary		Derive a slug from a title
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SlugRequest	true	"Title"
//	@Success		200		{object}	SlugResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slug [post]
func (h *Handler) DeriveSlug(w http.ResponseWriter, r *http.Request) {
	var req SlugRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, SlugResponse{Slug: h.svc.DeriveSlug(req.Title)})
}
