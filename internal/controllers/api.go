package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	localcontext "github.com/rahul4469/socialear/context"
	"github.com/rahul4469/socialear/internal/models"
	"github.com/rahul4469/socialear/internal/services"
)

// SentimentAnalyzer is the pipeline the controllers drive.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, req services.AnalyzeRequest) (*models.AnalysisResult, error)
	Latest(ctx context.Context, query, dateFrom, dateTo string) (*models.AnalysisResult, error)
}

// APIController serves the JSON API.
type APIController struct {
	analyzer SentimentAnalyzer
}

func NewAPIController(analyzer SentimentAnalyzer) *APIController {
	return &APIController{analyzer: analyzer}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// PostAnalyze handles POST /analyze?query=&date_from=&date_to=.
// Form-encoded bodies are accepted as well.
func (c *APIController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_input", Detail: "invalid form data"})
		return
	}

	req := services.AnalyzeRequest{
		Query:    r.FormValue("query"),
		DateFrom: r.FormValue("date_from"),
		DateTo:   r.FormValue("date_to"),
	}

	result, err := c.analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetResults handles GET /results/{query}. Both date_from and date_to
// select one exact result; without them the latest result is returned.
func (c *APIController) GetResults(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	q := r.URL.Query()

	result, err := c.analyzer.Latest(r.Context(), query, q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// errorStatus maps an error onto its HTTP status and error kind.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrUpstream):
		return http.StatusInternalServerError, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := localcontext.Logger(r.Context())
	status, kind := errorStatus(err)

	detail := err.Error()
	switch {
	case status >= 500 && kind == "internal_error":
		logger.Error("request failed", "error", err, "stack", string(debug.Stack()))
		detail = "internal server error"
	case status >= 500:
		logger.Error("request failed", "kind", kind, "error", err, "stack", string(debug.Stack()))
	default:
		logger.Info("request rejected", "kind", kind, "error", err)
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
