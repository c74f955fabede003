package metrics

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/articles/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", Handler())

	t.Run("labels by route pattern", func(t *testing.T) {
		before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/articles/{id}", "404"))
		inFlight := testutil.ToFloat64(HTTPRequestsInFlight)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/articles/abc", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/articles/{id}", "404"))
		assert.Equal(t, before+1, after)
		assert.Equal(t, inFlight, testutil.ToFloat64(HTTPRequestsInFlight))
	})

	t.Run("implicit 200", func(t *testing.T) {
		before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/ok", "200"))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
		assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/ok", "200")))
	})

	t.Run("metrics endpoint exposes namespace", func(t *testing.T) {
		ObserveArticleOp("create", ResultOK)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), "arbor_articles_operations_total"))
	})
}

func TestObserveArticleOp(t *testing.T) {
	before := testutil.ToFloat64(ArticleOpsTotal.WithLabelValues("delete", ResultRejected))
	ObserveArticleOp("delete", ResultRejected)
	assert.Equal(t, before+1, testutil.ToFloat64(ArticleOpsTotal.WithLabelValues("delete", ResultRejected)))
}

type fakeStats struct{ s sql.DBStats }

func (f fakeStats) Stats() sql.DBStats { return f.s }

func TestPoolStatsCollector(t *testing.T) {
	c := NewPoolStatsCollector(fakeStats{s: sql.DBStats{OpenConnections: 3, Idle: 2, InUse: 1}})
	c.Start(time.Hour)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(DBConnections.WithLabelValues("open")) == 3
	}, time.Second, 10*time.Millisecond)
	c.Stop()
	c.Stop()

	assert.Equal(t, float64(2), testutil.ToFloat64(DBConnections.WithLabelValues("idle")))
	assert.Equal(t, float64(1), testutil.ToFloat64(DBConnections.WithLabelValues("in_use")))
}
