// Package web serves the server-rendered article UI: the table with search,
// the editor, the read view and the collapsible tree sidebar.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/arbor/internal/apperr"
	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/models"
	"github.com/starford/arbor/internal/tree"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

var pages = []string{"list", "form", "view", "notfound"}

// Handler renders the HTML UI.
type Handler struct {
	svc   *articleservice.Service
	pages map[string]*template.Template
}

// New parses the embedded templates.
func New(svc *articleservice.Service) (*Handler, error) {
	funcs := template.FuncMap{
		"date": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	}
	h := &Handler{svc: svc, pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(assetsFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		h.pages[name] = tmpl
	}
	return h, nil
}

// Routes mounts the UI on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	static, _ := fs.Sub(assetsFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/articles", http.StatusFound)
	})
	r.Get("/articles", h.list)
	r.Get("/articles/new", h.newForm)
	r.Post("/articles/new", h.create)
	r.Get("/articles/{id}", h.editForm)
	r.Post("/articles/{id}", h.update)
	r.Get("/articles/{id}/view", h.view)
	r.Post("/articles/{id}/delete", h.delete)
	return r
}

type treeRow struct {
	tree.Row
	Indent     float64
	ToggleHref string
	SelectHref string
}

type formData struct {
	Title    string
	Slug     string
	Content  string
	ParentID string
	Version  string
}

type page struct {
	Title  string
	Error  string
	Rows   []treeRow
	Fields map[string]string

	Query string
	Items []articleservice.ListItem

	Article *articleservice.Detail
	HTML    template.HTML

	Action  string
	Form    formData
	Parents []models.Article
}

// sidebar renders the forest through the presentation state carried in the
// query string. Links keep the state so toggling survives navigation.
func (h *Handler) sidebar(r *http.Request, st *tree.State) ([]treeRow, error) {
	forest, err := h.svc.Tree(r.Context())
	if err != nil {
		return nil, err
	}
	visible := st.Visible(forest)
	rows := make([]treeRow, len(visible))
	for i, row := range visible {
		rows[i] = treeRow{
			Row:        row,
			Indent:     float64(row.Depth) * 0.75,
			ToggleHref: withQuery(r.URL.Path, st.ToggleQuery(row.Node.ID())),
			SelectHref: withQuery("/articles/"+row.Node.ID()+"/view", st.SelectQuery(row.Node.ID())),
		}
	}
	return rows, nil
}

func withQuery(path, q string) string {
	if q == "" {
		return path
	}
	return path + "?" + q
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, st *tree.State, p *page) {
	if st == nil {
		st = tree.ParseState(r.URL.Query())
	}
	rows, err := h.sidebar(r, st)
	if err != nil {
		h.fail(w, "sidebar", err)
		return
	}
	p.Rows = rows

	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		h.fail(w, "render "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	slog.Error("web: "+op+" failed", slog.String("error", err.Error()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", nil, &page{Title: "Not found"})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	h.render(w, r, http.StatusOK, "list", nil, &page{Title: "Articles", Query: q, Items: items})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "view", err)
		return
	}
	h.renderView(w, r, http.StatusOK, d, "")
}

func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, status int, d *articleservice.Detail, msg string) {
	html, err := h.svc.Render(d.Content)
	if err != nil {
		h.fail(w, "markdown", err)
		return
	}
	st := tree.ParseState(r.URL.Query())
	st.Select(d.ID)
	h.render(w, r, status, "view", st, &page{Title: d.Title, Article: d, HTML: html, Error: msg})
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	f := formData{ParentID: r.URL.Query().Get("parent_id")}
	h.renderForm(w, r, http.StatusOK, "", f, nil, "")
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "edit", err)
		return
	}
	f := formData{Title: d.Title, Slug: d.Slug, Content: d.Content, Version: d.Version}
	if d.ParentID != nil {
		f.ParentID = *d.ParentID
	}
	h.renderForm(w, r, http.StatusOK, id, f, nil, "")
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, id string, f formData, fields map[string]string, msg string) {
	parents, err := h.svc.ParentOptions(r.Context(), id)
	if err != nil {
		h.fail(w, "parent options", err)
		return
	}
	p := &page{Title: "New article", Action: "/articles/new", Form: f, Parents: parents, Fields: fields, Error: msg}
	if id != "" {
		p.Title = "Edit article"
		p.Action = "/articles/" + url.PathEscape(id)
	}
	if p.Fields == nil {
		p.Fields = map[string]string{}
	}
	h.render(w, r, status, "form", nil, p)
}

func readForm(r *http.Request) (formData, error) {
	if err := r.ParseForm(); err != nil {
		return formData{}, err
	}
	return formData{
		Title:    r.PostForm.Get("title"),
		Slug:     r.PostForm.Get("slug"),
		Content:  r.PostForm.Get("content"),
		ParentID: r.PostForm.Get("parent_id"),
		Version:  r.PostForm.Get("version"),
	}, nil
}

func (f formData) parent() *string {
	if f.ParentID == "" {
		return nil
	}
	p := f.ParentID
	return &p
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	d, err := h.svc.Create(r.Context(), articleservice.CreateRequest{
		Title: f.Title, Slug: f.Slug, Content: f.Content, ParentID: f.parent(),
	})
	if err != nil {
		h.formError(w, r, "", f, err)
		return
	}
	http.Redirect(w, r, "/articles/"+url.PathEscape(d.ID)+"/view", http.StatusSeeOther)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := readForm(r)
	if err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	d, err := h.svc.Update(r.Context(), id, articleservice.UpdateRequest{
		Title: f.Title, Slug: f.Slug, Content: f.Content, ParentID: f.parent(), IfMatch: f.Version,
	})
	if errors.Is(err, apperr.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.formError(w, r, id, f, err)
		return
	}
	http.Redirect(w, r, "/articles/"+url.PathEscape(d.ID)+"/view", http.StatusSeeOther)
}

// formError re-renders the editor with the submitted values and a message.
func (h *Handler) formError(w http.ResponseWriter, r *http.Request, id string, f formData, err error) {
	msg, ok := userMessage(err)
	if !ok {
		h.fail(w, "save", err)
		return
	}
	var ve *apperr.ValidationError
	var fields map[string]string
	if errors.As(err, &ve) {
		fields = ve.Fields
	}
	h.renderForm(w, r, http.StatusBadRequest, id, f, fields, msg)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.svc.Delete(r.Context(), id)
	switch {
	case err == nil:
		http.Redirect(w, r, "/articles", http.StatusSeeOther)
	case errors.Is(err, apperr.ErrNotFound):
		h.notFound(w, r)
	case errors.Is(err, apperr.ErrHasChildren):
		d, getErr := h.svc.Get(r.Context(), id)
		if getErr != nil {
			h.fail(w, "delete", getErr)
			return
		}
		h.renderView(w, r, http.StatusConflict, d, "This article has child articles. Move or delete them first.")
	default:
		h.fail(w, "delete", err)
	}
}

// userMessage returns the editor message for recoverable errors.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return "Please fix the highlighted fields.", true
	case errors.Is(err, apperr.ErrDuplicateSlug):
		return "An article with this slug already exists.", true
	case errors.Is(err, apperr.ErrParentNotFound):
		return "The selected parent article no longer exists.", true
	case errors.Is(err, apperr.ErrCycle):
		return "An article cannot be placed under itself or one of its descendants.", true
	case errors.Is(err, apperr.ErrConflict):
		return "This article was changed by someone else. Reload and try again.", true
	default:
		return "", false
	}
}
