package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul4469/socialear/internal/models"
	"github.com/rahul4469/socialear/internal/services"
)

type fakeAnalyzer struct {
	result *models.AnalysisResult
	err    error

	gotReq   services.AnalyzeRequest
	gotQuery string
	gotFrom  string
	gotTo    string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req services.AnalyzeRequest) (*models.AnalysisResult, error) {
	f.gotReq = req
	return f.result, f.err
}

func (f *fakeAnalyzer) Latest(ctx context.Context, query, dateFrom, dateTo string) (*models.AnalysisResult, error) {
	f.gotQuery, f.gotFrom, f.gotTo = query, dateFrom, dateTo
	return f.result, f.err
}

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		Query:        "ai",
		DateFrom:     "2024-06-14",
		DateTo:       "2024-06-15",
		ArticleCount: 5,
		Sentiment:    models.SentimentCounts{Positive: 2, Negative: 2, Neutral: 1, Total: 5},
		Articles: []models.ArticleSentiment{
			{Title: "Chips <b>boom</b>", URL: "https://example.com/a", Source: "Example", Label: models.LabelPositive, Stars: 5, Confidence: 0.8},
		},
		CreatedAt: time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC),
	}
}

func newAPIRouter(analyzer SentimentAnalyzer) http.Handler {
	ctrl := NewAPIController(analyzer)
	r := chi.NewRouter()
	r.Post("/analyze", ctrl.PostAnalyze)
	r.Get("/results/{query}", ctrl.GetResults)
	return r
}

func TestPostAnalyze_OK(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze?query=ai&date_from=2024-06-14&date_to=2024-06-15", nil)

	newAPIRouter(analyzer).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, services.AnalyzeRequest{Query: "ai", DateFrom: "2024-06-14", DateTo: "2024-06-15"}, analyzer.gotReq)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ai", body["query"])
	assert.EqualValues(t, 5, body["article_count"])
	sentiment := body["sentiment"].(map[string]any)
	assert.EqualValues(t, 2, sentiment["positive"])
	assert.EqualValues(t, 2, sentiment["negative"])
	assert.EqualValues(t, 1, sentiment["neutral"])
	assert.EqualValues(t, 5, sentiment["total"])
}

func TestPostAnalyze_FormBody(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader("query=ai&date_from=2024-06-14&date_to=2024-06-15"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	newAPIRouter(analyzer).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ai", analyzer.gotReq.Query)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"invalid date", models.ErrInvalidDateFormat, http.StatusBadRequest, "invalid_input"},
		{"short query", models.ErrQueryTooShort, http.StatusBadRequest, "invalid_input"},
		{"no articles", models.ErrNoArticlesFound, http.StatusNotFound, "not_found"},
		{"no result", models.ErrResultNotFound, http.StatusNotFound, "not_found"},
		{"upstream", &models.UpstreamError{Service: "newsapi", StatusCode: 401, Message: "apiKeyInvalid"}, http.StatusInternalServerError, "upstream_error"},
		{"cancelled mid-batch", &models.UpstreamError{Service: "classifier", Message: "request cancelled before all articles were classified", Err: context.DeadlineExceeded}, http.StatusInternalServerError, "upstream_error"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{err: tt.err}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/analyze?query=ai&date_from=x&date_to=y", nil)

			newAPIRouter(analyzer).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Error)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestErrorMapping_HidesInternalDetail(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("dial tcp 10.0.0.5:5432: secret")}
	rec := httptest.NewRecorder()

	newAPIRouter(analyzer).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze?query=ai", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestGetResults(t *testing.T) {
	t.Run("latest", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: sampleResult()}
		rec := httptest.NewRecorder()

		newAPIRouter(analyzer).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/ai", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ai", analyzer.gotQuery)
		assert.Empty(t, analyzer.gotFrom)
		assert.Empty(t, analyzer.gotTo)
	})

	t.Run("exact with escaped query", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: sampleResult()}
		rec := httptest.NewRecorder()

		newAPIRouter(analyzer).ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/results/electric%20cars?date_from=2024-06-14&date_to=2024-06-15", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "electric cars", analyzer.gotQuery)
		assert.Equal(t, "2024-06-14", analyzer.gotFrom)
		assert.Equal(t, "2024-06-15", analyzer.gotTo)
	})

	t.Run("not found", func(t *testing.T) {
		analyzer := &fakeAnalyzer{err: models.ErrResultNotFound}
		rec := httptest.NewRecorder()

		newAPIRouter(analyzer).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/nothing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStaticHandlers(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/ui", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	ReadyCheck(func(context.Context) error { return errors.New("down") })(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	ReadyCheck(func(context.Context) error { return nil })(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
