package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul4469/socialear/internal/models"
	"github.com/rahul4469/socialear/internal/views"
	"github.com/rahul4469/socialear/templates"
)

func newTestAnalyzeController(t *testing.T, analyzer SentimentAnalyzer) *AnalyzeController {
	t.Helper()
	return newTestAnalyzeControllerEnv(t, analyzer, false)
}

func newTestAnalyzeControllerEnv(t *testing.T, analyzer SentimentAnalyzer, development bool) *AnalyzeController {
	t.Helper()
	views.TemplateFS = templates.FS
	tmpl, err := views.ParseFS("pages/analyze.gohtml")
	require.NoError(t, err)

	c := NewAnalyzeController(analyzer, AnalyzeTemplates{Form: tmpl}, development)
	c.now = func() time.Time { return time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC) }
	return c
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ui", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGetAnalyze(t *testing.T) {
	c := newTestAnalyzeController(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()

	c.GetAnalyze(rec, httptest.NewRequest(http.MethodGet, "/ui", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="query"`)
	assert.Contains(t, body, `type="range" min="1" max="7"`)
	assert.NotContains(t, body, `id="env-badge"`)
}

func TestGetAnalyze_DevelopmentBadge(t *testing.T) {
	c := newTestAnalyzeControllerEnv(t, &fakeAnalyzer{}, true)
	rec := httptest.NewRecorder()

	c.GetAnalyze(rec, httptest.NewRequest(http.MethodGet, "/ui", nil))

	assert.Contains(t, rec.Body.String(), `id="env-badge">development</span>`)
}

func TestPostAnalyze_RendersResult(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	c := newTestAnalyzeController(t, analyzer)
	rec := httptest.NewRecorder()

	c.PostAnalyze(rec, postForm(url.Values{"query": {"ai"}, "days": {"3"}}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ai", analyzer.gotReq.Query)
	assert.Equal(t, "2024-06-12", analyzer.gotReq.DateFrom)
	assert.Equal(t, "2024-06-15", analyzer.gotReq.DateTo)

	body := rec.Body.String()
	assert.Contains(t, body, "Positive: 2 (40.0%)")
	assert.Contains(t, body, "Neutral: 1 (20.0%)")
	assert.Contains(t, body, "https://example.com/a")
	assert.Contains(t, body, "Chips &lt;b&gt;boom&lt;/b&gt;", "titles are escaped")
	assert.Contains(t, body, "80%")
	assert.Contains(t, body, "+ POSITIVE")
	assert.Contains(t, body, "analyzed Jun 15, 2024 09:00 UTC")
}

func TestPostAnalyze_ClampsDays(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	c := newTestAnalyzeController(t, analyzer)

	c.PostAnalyze(httptest.NewRecorder(), postForm(url.Values{"query": {"ai"}, "days": {"30"}}))
	assert.Equal(t, "2024-06-08", analyzer.gotReq.DateFrom)

	c.PostAnalyze(httptest.NewRecorder(), postForm(url.Values{"query": {"ai"}, "days": {"abc"}}))
	assert.Equal(t, "2024-06-14", analyzer.gotReq.DateFrom)
}

func TestPostAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantText   string
	}{
		{"short query", models.ErrQueryTooShort, http.StatusBadRequest, "at least 2 characters"},
		{"no articles", models.ErrNoArticlesFound, http.StatusNotFound, "No articles found"},
		{"upstream", &models.UpstreamError{Service: "newsapi", StatusCode: 429, Message: "rateLimited"}, http.StatusInternalServerError, "rateLimited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestAnalyzeController(t, &fakeAnalyzer{err: tt.err})
			rec := httptest.NewRecorder()

			c.PostAnalyze(rec, postForm(url.Values{"query": {"ai"}, "days": {"2"}}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
			assert.Contains(t, rec.Body.String(), `value="ai"`, "form keeps the query")
		})
	}
}
