package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/markdown"
	"github.com/starford/arbor/internal/testutil"
)

func setup(t *testing.T) (*articleservice.Service, http.Handler) {
	t.Helper()
	svc := articleservice.New(testutil.TestDB(t), markdown.Basic{})
	h, err := New(svc)
	require.NoError(t, err)
	return svc, h.Routes()
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func postForm(router http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func chain(t *testing.T, svc *articleservice.Service) (tech, prog, web *articleservice.Detail) {
	t.Helper()
	ctx := context.Background()
	var err error
	tech, err = svc.Create(ctx, articleservice.CreateRequest{Title: "Technology", Content: "# Technology"})
	require.NoError(t, err)
	prog, err = svc.Create(ctx, articleservice.CreateRequest{Title: "Programming", Content: "**Code**", ParentID: &tech.ID})
	require.NoError(t, err)
	web, err = svc.Create(ctx, articleservice.CreateRequest{Title: "Web Development", Content: "HTML", ParentID: &prog.ID})
	require.NoError(t, err)
	return tech, prog, web
}

func TestList_ShowsArticlesAndSearch(t *testing.T) {
	svc, router := setup(t)
	chain(t, svc)

	w := get(router, "/articles")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "web-development")
	assert.Contains(t, body, "Programming")

	w = get(router, "/articles?q=nothing-matches")
	assert.Contains(t, w.Body.String(), "No articles match")
}

func TestRootRedirects(t *testing.T) {
	_, router := setup(t)
	w := get(router, "/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/articles", w.Header().Get("Location"))
}

func TestSidebar_CollapsedStateHidesDescendants(t *testing.T) {
	svc, router := setup(t)
	tech, prog, _ := chain(t, svc)
	viewPath := "/articles/" + tech.ID + "/view"

	body := get(router, viewPath).Body.String()
	assert.Contains(t, body, ">Web Development<")

	body = get(router, viewPath+"?collapsed="+prog.ID).Body.String()
	assert.NotContains(t, body, ">Web Development<")
	assert.Contains(t, body, ">Programming<")
	// The toggle link on the collapsed node expands it again.
	assert.Contains(t, body, `href="`+viewPath+`?selected=`+tech.ID+`"`)
}

func TestCreate_RedirectsToView(t *testing.T) {
	svc, router := setup(t)
	w := postForm(router, "/articles/new", url.Values{"title": {"Getting Started with React"}, "content": {"# React"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	d, err := svc.GetBySlug(context.Background(), "getting-started-with-react")
	require.NoError(t, err)
	assert.Equal(t, "/articles/"+d.ID+"/view", w.Header().Get("Location"))
}

func TestCreate_ValidationRerendersForm(t *testing.T) {
	_, router := setup(t)
	w := postForm(router, "/articles/new", url.Values{"title": {"Kept title"}, "content": {""}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Please fix the highlighted fields.")
	assert.Contains(t, body, `value="Kept title"`)
}

func TestCreate_DuplicateSlugMessage(t *testing.T) {
	svc, router := setup(t)
	chain(t, svc)
	w := postForm(router, "/articles/new", url.Values{"title": {"Technology"}, "content": {"again"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "An article with this slug already exists.")
}

func TestEdit_UpdatesAndRejectsCycle(t *testing.T) {
	svc, router := setup(t)
	tech, _, web := chain(t, svc)

	w := get(router, "/articles/"+tech.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Technology"`)

	w = postForm(router, "/articles/"+tech.ID, url.Values{
		"title": {"Technology"}, "content": {"x"}, "parent_id": {web.ID},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot be placed under itself")

	w = postForm(router, "/articles/"+tech.ID, url.Values{
		"title": {"Tech"}, "slug": {"tech"}, "content": {"updated"}, "version": {tech.Version},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	got, err := svc.Get(context.Background(), tech.ID)
	require.NoError(t, err)
	assert.Equal(t, "tech", got.Slug)
}

func TestView_BreadcrumbsAndMarkdown(t *testing.T) {
	svc, router := setup(t)
	_, prog, web := chain(t, svc)

	w := get(router, "/articles/"+prog.ID+"/view")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<strong>Code</strong>")
	assert.Contains(t, body, ">Technology</a>")

	w = get(router, "/articles/"+web.ID+"/view")
	assert.Contains(t, w.Body.String(), `class="depth-2 selected"`)
}

func TestDelete(t *testing.T) {
	svc, router := setup(t)
	tech, _, web := chain(t, svc)

	w := postForm(router, "/articles/"+tech.ID+"/delete", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "has child articles")

	w = postForm(router, "/articles/"+web.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/articles/"+web.ID+"/view").Code)
}

func TestStaticAssets(t *testing.T) {
	_, router := setup(t)
	w := get(router, "/static/app.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".tree")
}
